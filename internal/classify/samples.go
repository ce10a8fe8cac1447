package classify

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
)

//go:embed sample-data/samples.txt
var sampleData embed.FS

// Sample is a reference flow vector shipped with the analyzer.
type Sample struct {
	Name   string `json:"name"`
	Vector string `json:"vector"`
}

// Samples are loaded once at init, in file order.
var Samples []Sample

func init() {
	s, err := loadSamples("sample-data/samples.txt")
	if err != nil {
		panic(err)
	}
	Samples = s
}

// loadSamples reads "<name>: <vector>" lines, skipping blanks and # comments.
func loadSamples(name string) ([]Sample, error) {
	f, err := sampleData.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Sample
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), MaxInputLength*2)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		label, vector, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%s: malformed sample line %q", name, line)
		}
		out = append(out, Sample{Name: strings.TrimSpace(label), Vector: strings.TrimSpace(vector)})
	}
	return out, sc.Err()
}

// SampleVector returns the vector of the named sample.
func SampleVector(name string) (string, bool) {
	for _, s := range Samples {
		if s.Name == name {
			return s.Vector, true
		}
	}
	return "", false
}
