package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrMissingArtifact is wrapped by ArtifactError when a file does not exist.
var ErrMissingArtifact = errors.New("artifact not found")

// ArtifactError reports which bundle artifact could not be loaded.
type ArtifactError struct {
	Bundle string
	File   string
	Err    error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s bundle: %s: %v", e.Bundle, e.File, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// Classifier artifact formats.
const (
	KindForest = "forest"
	KindONNX   = "onnx"
)

// BundleFiles names the artifacts of one bundle, relative to the model dir.
// An onnx classifier needs an Importances sidecar: a JSON array with one
// weight per feature.
type BundleFiles struct {
	Kind        string `yaml:"kind,omitempty"`
	Classifier  string `yaml:"classifier"`
	Importances string `yaml:"importances,omitempty"`
	Scaler      string `yaml:"scaler"`
	Features    string `yaml:"features"`
	Encoder     string `yaml:"encoder,omitempty"`
}

// Manifest is the optional manifest.yaml of a model directory. Runtime is
// the onnxruntime shared library used by onnx bundles.
type Manifest struct {
	Runtime string      `yaml:"onnxruntime,omitempty"`
	Binary  BundleFiles `yaml:"binary"`
	Multi   BundleFiles `yaml:"multi"`
}

// ManifestFile is looked up in the model directory; it may be absent.
const ManifestFile = "manifest.yaml"

// DefaultManifest returns the file names written by the training notebook.
func DefaultManifest() Manifest {
	return Manifest{
		Binary: BundleFiles{
			Kind:       KindForest,
			Classifier: "binary_model.json",
			Scaler:     "binary_scaler.json",
			Features:   "binary_feature_columns.json",
		},
		Multi: BundleFiles{
			Kind:       KindForest,
			Classifier: "multi_class_model.json",
			Scaler:     "multi_class_scaler.json",
			Features:   "multi_class_features.json",
			Encoder:    "multi_class_encoder.json",
		},
	}
}

// LoadManifest reads dir/manifest.yaml over the defaults. Fields left empty
// in the file keep their default name.
func LoadManifest(dir string) (Manifest, error) {
	m := DefaultManifest()
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("read %s: %w", path, err)
	}
	var override Manifest
	if err := yaml.Unmarshal(data, &override); err != nil {
		return m, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if override.Runtime != "" {
		m.Runtime = override.Runtime
	}
	m.Binary = m.Binary.merge(override.Binary)
	m.Multi = m.Multi.merge(override.Multi)
	return m, nil
}

func (f BundleFiles) merge(o BundleFiles) BundleFiles {
	if o.Kind != "" {
		f.Kind = o.Kind
	}
	if o.Importances != "" {
		f.Importances = o.Importances
	}
	if o.Classifier != "" {
		f.Classifier = o.Classifier
	}
	if o.Scaler != "" {
		f.Scaler = o.Scaler
	}
	if o.Features != "" {
		f.Features = o.Features
	}
	if o.Encoder != "" {
		f.Encoder = o.Encoder
	}
	return f
}

// Load reads both bundles from dir. Any missing or inconsistent artifact
// fails the whole load; no partial Set is returned.
func Load(dir string, logger *slog.Logger) (*Set, error) {
	manifest, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}

	binary, err := loadBundle(dir, manifest.Runtime, "binary", manifest.Binary, false)
	if err != nil {
		return nil, err
	}
	multi, err := loadBundle(dir, manifest.Runtime, "multi", manifest.Multi, true)
	if err != nil {
		closeClassifier(binary.Classifier)
		return nil, err
	}

	for _, b := range []*Bundle{binary, multi} {
		logger.Info("model bundle loaded",
			"bundle", b.Name,
			"kind", b.Kind,
			"features", b.NumFeatures(),
			"classes", len(b.Labels),
			"top_features", b.Ranking.Top(5),
		)
	}
	return &Set{Binary: binary, Multi: multi}, nil
}

func loadBundle(dir, runtime, name string, files BundleFiles, withEncoder bool) (*Bundle, error) {
	fail := func(file string, err error) error {
		if errors.Is(err, fs.ErrNotExist) {
			err = ErrMissingArtifact
		}
		return &ArtifactError{Bundle: name, File: file, Err: err}
	}

	var features []string
	if err := readJSON(filepath.Join(dir, files.Features), &features); err != nil {
		return nil, fail(files.Features, err)
	}
	if len(features) == 0 {
		return nil, fail(files.Features, errors.New("no feature names"))
	}

	var sf scalerFile
	if err := readJSON(filepath.Join(dir, files.Scaler), &sf); err != nil {
		return nil, fail(files.Scaler, err)
	}
	scaler, err := sf.build()
	if err != nil {
		return nil, fail(files.Scaler, err)
	}
	if scaler.Width() != len(features) {
		return nil, fail(files.Scaler, fmt.Errorf("fitted on %d features, bundle lists %d", scaler.Width(), len(features)))
	}

	labels := BinaryLabels
	if withEncoder {
		var enc LabelEncoder
		if err := readJSON(filepath.Join(dir, files.Encoder), &enc); err != nil {
			return nil, fail(files.Encoder, err)
		}
		if len(enc.Classes) < 2 {
			return nil, fail(files.Encoder, fmt.Errorf("encoder has %d classes", len(enc.Classes)))
		}
		labels = enc.Classes
	}

	var clf Classifier
	switch files.Kind {
	case KindForest, "":
		forest := &Forest{}
		if err := readJSON(filepath.Join(dir, files.Classifier), forest); err != nil {
			return nil, fail(files.Classifier, err)
		}
		if err := forest.init(); err != nil {
			return nil, fail(files.Classifier, err)
		}
		clf = forest
	case KindONNX:
		if files.Importances == "" {
			return nil, fail(files.Classifier, errors.New("onnx bundle has no importances sidecar"))
		}
		var importances []float64
		if err := readJSON(filepath.Join(dir, files.Importances), &importances); err != nil {
			return nil, fail(files.Importances, err)
		}
		if len(importances) != len(features) {
			return nil, fail(files.Importances, fmt.Errorf("%d importances, bundle lists %d features", len(importances), len(features)))
		}
		onnx, err := OpenONNX(filepath.Join(dir, files.Classifier), runtime, len(features), len(labels), importances)
		if err != nil {
			return nil, fail(files.Classifier, err)
		}
		clf = onnx
	default:
		return nil, fail(files.Classifier, fmt.Errorf("unknown classifier kind %q", files.Kind))
	}

	if clf.NumFeatures() != len(features) {
		closeClassifier(clf)
		return nil, fail(files.Classifier, fmt.Errorf("fitted on %d features, bundle lists %d", clf.NumFeatures(), len(features)))
	}
	if clf.NumClasses() != len(labels) {
		closeClassifier(clf)
		if withEncoder {
			return nil, fail(files.Encoder, fmt.Errorf("encoder has %d classes, classifier %d", len(labels), clf.NumClasses()))
		}
		return nil, fail(files.Classifier, fmt.Errorf("binary classifier has %d classes", clf.NumClasses()))
	}

	kind := files.Kind
	if kind == "" {
		kind = KindForest
	}
	return &Bundle{
		Name:       name,
		Kind:       kind,
		Classifier: clf,
		Scaler:     scaler,
		Features:   features,
		Labels:     labels,
		Ranking:    NewRanking(features, clf.FeatureImportances()),
	}, nil
}

func closeClassifier(c Classifier) {
	if closer, ok := c.(io.Closer); ok {
		closer.Close()
	}
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
