// Package geoip resolves client addresses to ISO country codes.
package geoip

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Service wraps a MaxMind country or city database.
type Service struct {
	reader *geoip2.Reader
}

// Open loads the .mmdb file at path.
func Open(path string) (*Service, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &Service{reader: reader}, nil
}

// Close releases the database.
func (s *Service) Close() {
	if s != nil && s.reader != nil {
		s.reader.Close()
	}
}

// Country returns the ISO code for ip, or "" when ip is unparseable,
// private, or unknown to the database. A nil Service always returns "".
func (s *Service) Country(ip string) string {
	if s == nil || s.reader == nil {
		return ""
	}
	addr := net.ParseIP(ip)
	if addr == nil || addr.IsPrivate() || addr.IsLoopback() {
		return ""
	}
	record, err := s.reader.Country(addr)
	if err != nil {
		return ""
	}
	return record.Country.IsoCode
}
