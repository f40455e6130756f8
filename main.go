package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"modashot-server/modules/broadcast"
	"modashot-server/modules/common/config"
	"modashot-server/modules/common/database"
	redisClient "modashot-server/modules/common/redis"
	"modashot-server/modules/common/storage"
	"modashot-server/modules/generate"
	"modashot-server/modules/genimage"
	"modashot-server/modules/queue"
)

// CORS 헤더 추가
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "modashot-server",
	})
}

// newGenerator - 환경에 따라 Gemini API / Vertex AI 백엔드 선택
func newGenerator(cfg *config.Config) genimage.Generator {
	if cfg.UseVertexAI {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		gen, err := genimage.NewVertexGenerator(ctx, cfg)
		if err != nil {
			log.Fatalf("❌ Failed to initialize Vertex AI generator: %v", err)
		}
		log.Println("🎨 Image backend: Vertex AI")
		return gen
	}

	log.Println("🎨 Image backend: Gemini API")
	return genimage.NewGeminiGenerator(cfg.GeminiAPIKeys, cfg.GeminiModel)
}

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Redis 연결
	rdb, err := redisClient.Connect(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}

	// Database / Storage 클라이언트
	dbClient := database.NewClient()
	if dbClient == nil {
		log.Fatal("❌ Failed to initialize Database client")
	}
	storageClient := storage.NewClient()

	// 브로드캐스트 허브
	hub := broadcast.NewHub()
	hub.StartCleanupRoutine()

	// 잡 큐 + 리퍼
	jobQueue := queue.NewRedisQueue(rdb, cfg.MaxJobRetries)
	ctx := context.Background()
	go jobQueue.StartReaper(ctx)

	// 오케스트레이터 + 워커 (백그라운드)
	generator := newGenerator(cfg)
	orchestrator := generate.NewOrchestrator(
		dbClient,
		storageClient,
		generator,
		hub,
		jobQueue,
		time.Duration(cfg.ShotTimeoutSec)*time.Second,
	)
	worker := generate.NewWorker(jobQueue, orchestrator, dbClient)
	go worker.Start(ctx)

	// 라우터 설정
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ws", hub.HandleWebSocket)
	r.HandleFunc("/api/jobs/{jobId}/events", hub.HandleEventStream).Methods("GET")
	r.HandleFunc("/api/rooms/{jobId}", hub.HandleRoomInfo).Methods("GET")
	r.HandleFunc("/metrics", hub.HandleMetrics).Methods("GET")

	queueHandler := queue.NewHandler(jobQueue, dbClient)
	queueHandler.RegisterRoutes(r)

	log.Printf("🚀 Modashot Server starting on port %s", cfg.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%s/ws?job=<jobId>", cfg.Port)
	log.Printf("📡 Event stream: http://localhost:%s/api/jobs/{jobId}/events", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("📊 Metrics: http://localhost:%s/metrics", cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
