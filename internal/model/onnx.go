package model

import (
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrRuntimeUnavailable is returned for an onnx bundle when no onnxruntime
// shared library is configured.
var ErrRuntimeUnavailable = errors.New("onnxruntime shared library not configured")

// RuntimeLibraryEnv names the onnxruntime shared library when the manifest
// does not.
const RuntimeLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// ProbabilitiesOutput is the class probability tensor skl2onnx emits for a
// classifier converted with zipmap disabled.
const ProbabilitiesOutput = "probabilities"

var runtimeMu sync.Mutex

// initRuntime loads the shared library once per process.
func initRuntime(libPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		libPath = os.Getenv(RuntimeLibraryEnv)
	}
	if libPath == "" {
		return ErrRuntimeUnavailable
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// ONNXClassifier runs an sklearn classifier exported with skl2onnx. The graph
// carries no feature_importances_, so they are supplied by the caller.
// One session with preallocated tensors is shared; PredictProba serialises
// on it.
type ONNXClassifier struct {
	mu          sync.Mutex
	session     *ort.AdvancedSession
	input       *ort.Tensor[float32]
	output      *ort.Tensor[float32]
	nFeatures   int
	nClasses    int
	importances []float64
}

// OpenONNX creates a session for the model at path. libPath may be empty to
// fall back to RuntimeLibraryEnv.
func OpenONNX(path, libPath string, nFeatures, nClasses int, importances []float64) (*ONNXClassifier, error) {
	if len(importances) != nFeatures {
		return nil, fmt.Errorf("%d importances for %d features: %w", len(importances), nFeatures, ErrDimension)
	}
	if err := initRuntime(libPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("inspect onnx model: %w", err)
	}
	in, out, err := selectIO(inputs, outputs)
	if err != nil {
		return nil, err
	}
	if err := checkWidth("input "+in.Name, in.Dimensions, nFeatures); err != nil {
		return nil, err
	}
	if err := checkWidth("output "+out.Name, out.Dimensions, nClasses); err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("set graph optimization: %w", err)
	}
	if err := opts.SetIntraOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("set intra threads: %w", err)
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(nFeatures)))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(nClasses)))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}
	session, err := ort.NewAdvancedSession(path,
		[]string{in.Name}, []string{out.Name},
		[]ort.Value{input}, []ort.Value{output},
		opts,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNXClassifier{
		session:     session,
		input:       input,
		output:      output,
		nFeatures:   nFeatures,
		nClasses:    nClasses,
		importances: append([]float64(nil), importances...),
	}, nil
}

// selectIO picks the single model input and the probability output.
func selectIO(inputs, outputs []ort.InputOutputInfo) (ort.InputOutputInfo, ort.InputOutputInfo, error) {
	var none ort.InputOutputInfo
	if len(inputs) != 1 {
		return none, none, fmt.Errorf("model has %d inputs, want 1", len(inputs))
	}
	if inputs[0].DataType != ort.TensorElementDataTypeFloat {
		return none, none, fmt.Errorf("input %s has element type %v, want float", inputs[0].Name, inputs[0].DataType)
	}

	var candidates []ort.InputOutputInfo
	for _, o := range outputs {
		if o.OrtValueType != ort.ONNXTypeTensor || o.DataType != ort.TensorElementDataTypeFloat {
			continue
		}
		if o.Name == ProbabilitiesOutput {
			return inputs[0], o, nil
		}
		candidates = append(candidates, o)
	}
	if len(candidates) != 1 {
		return none, none, fmt.Errorf("no single float probability output among %d outputs; convert with zipmap disabled", len(outputs))
	}
	return inputs[0], candidates[0], nil
}

// checkWidth accepts a [batch, width] shape whose width is want or dynamic.
func checkWidth(what string, dims ort.Shape, want int) error {
	if len(dims) != 2 {
		return fmt.Errorf("%s has shape %v, want [batch, %d]", what, dims, want)
	}
	if dims[1] > 0 && dims[1] != int64(want) {
		return fmt.Errorf("%s has width %d, want %d: %w", what, dims[1], want, ErrDimension)
	}
	return nil
}

// PredictProba returns the class distribution for an already scaled vector.
func (c *ONNXClassifier) PredictProba(x []float64) ([]float64, error) {
	if len(x) != c.nFeatures {
		return nil, fmt.Errorf("classifier expects %d features, got %d: %w", c.nFeatures, len(x), ErrDimension)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	in := c.input.GetData()
	for i, v := range x {
		in[i] = float32(v)
	}
	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	raw := c.output.GetData()
	out := make([]float64, c.nClasses)
	for i := range out {
		out[i] = float64(raw[i])
	}
	return out, nil
}

// FeatureImportances returns a copy of the sidecar importance weights.
func (c *ONNXClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), c.importances...)
}

// NumFeatures reports the input width.
func (c *ONNXClassifier) NumFeatures() int { return c.nFeatures }

// NumClasses reports the width of PredictProba's output.
func (c *ONNXClassifier) NumClasses() int { return c.nClasses }

// Close releases the session and its tensors.
func (c *ONNXClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(c.session.Destroy(), c.input.Destroy(), c.output.Destroy())
}
