package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/ayushman-7/AI-Model-deployment/internal/model"
	"github.com/ayushman-7/AI-Model-deployment/internal/tensor"
)

const inputField = "input_data"

const requestSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["input_data"]
}`

var requestSchema = jsonschema.MustCompileString("predict_request.json", requestSchemaJSON)

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type Handler struct {
	predictor    model.Predictor
	logger       *zap.Logger
	exposeErrors bool
}

// NewHandler serves predictions from p. When exposeErrors is set, 500
// responses carry the underlying error text instead of a generic message.
func NewHandler(p model.Predictor, logger *zap.Logger, exposeErrors bool) *Handler {
	return &Handler{
		predictor:    p,
		logger:       logger,
		exposeErrors: exposeErrors,
	}
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Detail: "Method Not Allowed"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "failed to read request body"})
		return
	}

	req, err := decodeRequest(body)
	if err != nil {
		h.logger.Debug("rejected prediction request", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
		return
	}

	input, err := tensor.FromJSON(req.InputData)
	if err != nil {
		h.fail(w, &InferenceError{Stage: "reshape", Err: err})
		return
	}

	output, err := h.predictor.Predict(input)
	if err != nil {
		h.fail(w, &InferenceError{Stage: "predict", Err: err})
		return
	}

	predictions, err := tensor.Nest(output)
	if err != nil {
		h.fail(w, &InferenceError{Stage: "encode", Err: err})
		return
	}

	payload, err := json.Marshal(model.PredictionResponse{Predictions: predictions})
	if err != nil {
		h.fail(w, &InferenceError{Stage: "encode", Err: err})
		return
	}

	h.logger.Debug("prediction served",
		zap.Ints("input_shape", input.Shape()),
		zap.Ints("output_shape", output.Shape()))
	writeBody(w, http.StatusOK, payload)
}

// decodeRequest returns *InvalidBodyError or *MissingFieldError for client
// mistakes. Nothing beyond the presence of input_data is checked here.
func decodeRequest(body []byte) (*model.PredictionRequest, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &InvalidBodyError{Err: err}
	}
	if err := dec.Decode(new(any)); err != io.EOF {
		return nil, &InvalidBodyError{Err: errors.New("unexpected data after JSON value")}
	}

	if err := requestSchema.Validate(doc); err != nil {
		fields, isObject := doc.(map[string]any)
		if !isObject {
			return nil, &InvalidBodyError{Err: err}
		}
		if _, ok := fields[inputField]; !ok {
			return nil, &MissingFieldError{Field: inputField}
		}
		return nil, &InvalidBodyError{Err: err}
	}

	fields := doc.(map[string]any)
	return &model.PredictionRequest{InputData: fields[inputField]}, nil
}

func (h *Handler) fail(w http.ResponseWriter, err *InferenceError) {
	h.logger.Error("prediction failed", zap.String("stage", err.Stage), zap.Error(err.Err))

	detail := "prediction failed"
	if h.exposeErrors {
		detail = errors.Cause(err.Err).Error()
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: detail})
}

// writeJSON marshals before touching the response so an encoding failure
// never leaves a bare status line behind.
func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		payload = []byte(`{"detail":"prediction failed"}`)
	}
	writeBody(w, status, payload)
}

func writeBody(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(payload, '\n'))
}
