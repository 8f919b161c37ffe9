package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"termdeposit/ml"
	"termdeposit/predictor"
)

// Predictor 预测服务接口
type Predictor interface {
	Predict(ctx context.Context, fields map[string]ml.Cell) (predictor.Prediction, error)
	Health() string
}

// StatusSuccess 预测成功时的状态字段
const StatusSuccess = "Success"

// PredictResponse POST /predict 的响应体
type PredictResponse struct {
	Status     string `json:"status"`
	Prediction string `json:"prediction"`
}

type handlers struct {
	svc       Predictor
	validator *RecordValidator
	logger    *zap.Logger
	metrics   *Metrics
}

// RegisterHandlers 注册健康检查与预测路由
func RegisterHandlers(mux *http.ServeMux, svc Predictor, logger *zap.Logger, metrics *Metrics) {
	validator, err := NewRecordValidator()
	if err != nil {
		// schema 由代码生成，编译失败说明程序本身有误
		panic(err)
	}
	h := &handlers{svc: svc, validator: validator, logger: logger, metrics: metrics}

	mux.HandleFunc("GET /{$}", h.handleHealth)
	mux.HandleFunc("POST /{$}", h.handleHealth)
	mux.HandleFunc("POST /predict", h.handlePredict)
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": h.svc.Health()})
}

func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDetail(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeValidation(w, &ValidationError{Fields: []FieldError{{Field: "body", Message: err.Error()}}})
		return
	}

	record, err := h.validator.Decode(body)
	if err != nil {
		var invalid *ValidationError
		if errors.As(err, &invalid) {
			h.logger.Info("Rejected prediction request",
				zap.String("request_id", requestID), zap.Error(err))
			writeValidation(w, invalid)
			return
		}
		writeDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Debug("Prediction request", zap.String("request_id", requestID), zap.Any("record", record))

	prediction, err := h.svc.Predict(r.Context(), record.Cells())
	if err != nil {
		h.logger.Error("Prediction failed",
			zap.String("request_id", requestID),
			zap.Any("record", record),
			zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.metrics != nil {
		h.metrics.Predictions.WithLabelValues(prediction.Label).Inc()
		if prediction.Cached {
			h.metrics.CacheHits.Inc()
		}
	}
	h.logger.Info("Prediction",
		zap.String("request_id", requestID),
		zap.String("prediction", prediction.Label),
		zap.Float64("probability", prediction.Probability),
		zap.Bool("cached", prediction.Cached))

	writeJSON(w, http.StatusOK, PredictResponse{Status: StatusSuccess, Prediction: prediction.Label})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, err *ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string][]FieldError{"detail": err.Fields})
}

