package queue

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"modashot-server/modules/common/database"
	"modashot-server/modules/common/model"
)

// Handler - 잡 투입/조회 HTTP 핸들러
type Handler struct {
	queue    JobQueue
	dbClient *database.Client
}

// EnqueueRequest - Enqueue 요청
type EnqueueRequest struct {
	JobID string `json:"job_id"`
}

// EnqueueResponse - Enqueue 응답
type EnqueueResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
	JobID         string `json:"job_id,omitempty"`
	Queue         string `json:"queue,omitempty"`
	QueuePosition int64  `json:"queuePosition,omitempty"`
}

// NewHandler - Handler 생성
func NewHandler(queue JobQueue, dbClient *database.Client) *Handler {
	return &Handler{
		queue:    queue,
		dbClient: dbClient,
	}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/enqueue", h.HandleEnqueue).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/jobs/{jobId}", h.HandleGetJob).Methods("GET", "OPTIONS")
	log.Println("✅ Queue routes registered: /api/enqueue, /api/jobs/{jobId}")
}

// HandleEnqueue - POST /api/enqueue
func (h *Handler) HandleEnqueue(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ [Enqueue] Invalid request: %v", err)
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	if req.JobID == "" {
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   "job_id is required",
		})
		return
	}

	log.Printf("📥 [Enqueue] Received job_id: %s", req.JobID)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// 이미 종결된 잡은 재투입 금지 (종결 상태는 영구적)
	if job, err := h.dbClient.FetchJob(ctx, req.JobID); err == nil && model.IsTerminal(job.JobStatus) {
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   "job is already " + job.JobStatus,
			JobID:   req.JobID,
		})
		return
	}

	position, err := h.queue.Enqueue(ctx, req.JobID)
	if err != nil {
		log.Printf("❌ [Enqueue] Failed: %v", err)
		json.NewEncoder(w).Encode(EnqueueResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	json.NewEncoder(w).Encode(EnqueueResponse{
		Success:       true,
		Message:       "Job enqueued successfully",
		JobID:         req.JobID,
		Queue:         QueueKey,
		QueuePosition: position,
	})
}

// HandleGetJob - GET /api/jobs/{jobId}
// 브로드캐스트는 히스토리 리플레이가 없으므로, 늦게 붙은 클라이언트는 이걸로 현재 상태를 맞춘다
func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	jobID := mux.Vars(r)["jobId"]

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	job, err := h.dbClient.FetchJob(ctx, jobID)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"job":     job,
	})
}
