package model

import (
	"os"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	gt "gorgonia.org/tensor"
)

type Options struct {
	Path string
	// SharedLibraryPath points at libonnxruntime; empty uses the platform default.
	SharedLibraryPath string
	// InputName and OutputName override the first graph input/output.
	InputName  string
	OutputName string
}

// Server owns one ONNX Runtime session. It is immutable after NewServer and
// safe for concurrent Predict calls.
type Server struct {
	session  *ort.DynamicAdvancedSession
	Metadata Metadata
}

func NewServer(opts Options) (*Server, error) {
	info, err := os.Stat(opts.Path)
	if err != nil {
		return nil, &LoadError{Path: opts.Path, Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Path: opts.Path, Err: errors.New("is a directory")}
	}

	if !ort.IsInitialized() {
		if opts.SharedLibraryPath != "" {
			ort.SetSharedLibraryPath(opts.SharedLibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, &LoadError{Path: opts.Path, Err: errors.Wrap(err, "initialize ONNX environment")}
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(opts.Path)
	if err != nil {
		return nil, &LoadError{Path: opts.Path, Err: errors.Wrap(err, "read model graph")}
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, &LoadError{Path: opts.Path, Err: errors.New("model declares no inputs or outputs")}
	}

	in, err := pick(inputs, opts.InputName)
	if err != nil {
		return nil, &LoadError{Path: opts.Path, Err: errors.Wrap(err, "input")}
	}
	out, err := pick(outputs, opts.OutputName)
	if err != nil {
		return nil, &LoadError{Path: opts.Path, Err: errors.Wrap(err, "output")}
	}

	session, err := ort.NewDynamicAdvancedSession(opts.Path,
		[]string{in.Name}, []string{out.Name}, nil)
	if err != nil {
		return nil, &LoadError{Path: opts.Path, Err: errors.Wrap(err, "create ONNX session")}
	}

	return &Server{
		session: session,
		Metadata: Metadata{
			InputName:   in.Name,
			OutputName:  out.Name,
			InputShape:  []int64(in.Dimensions),
			OutputShape: []int64(out.Dimensions),
		},
	}, nil
}

func pick(infos []ort.InputOutputInfo, name string) (ort.InputOutputInfo, error) {
	if name == "" {
		return infos[0], nil
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return ort.InputOutputInfo{}, errors.Errorf("no tensor named %q", name)
}

func (s *Server) Predict(input *gt.Dense) (*gt.Dense, error) {
	data, ok := input.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("input dtype %v, want float32", input.Dtype())
	}
	dims := make([]int64, 0, input.Dims())
	for _, d := range input.Shape() {
		dims = append(dims, int64(d))
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(dims...), data)
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}
	defer inputTensor.Destroy()

	// nil output is allocated by the runtime to fit the batch
	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}
	defer outputs[0].Destroy()

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.Errorf("unsupported output type %T", outputs[0])
	}

	outShape := outputTensor.GetShape()
	shape := make([]int, len(outShape))
	for i, d := range outShape {
		shape[i] = int(d)
	}
	// the runtime frees its buffer on Destroy
	values := append([]float32(nil), outputTensor.GetData()...)

	return gt.New(gt.WithShape(shape...), gt.WithBacking(values)), nil
}

func (s *Server) Close() {
	if s.session != nil {
		s.session.Destroy()
	}
	ort.DestroyEnvironment()
}
