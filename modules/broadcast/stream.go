package broadcast

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// streamSub - NDJSON 풀 스트림 구독자 하나
type streamSub struct {
	id      string
	jobID   string
	ownerID string // 빈 문자열이면 잡 ID 매칭만으로 전달
	ch      chan []byte
}

// streamRegistry - 전역 스트림 구독자 목록, 구독자별 필터링
type streamRegistry struct {
	subs  map[string]*streamSub
	mutex sync.RWMutex
}

func newStreamRegistry() *streamRegistry {
	return &streamRegistry{
		subs: make(map[string]*streamSub),
	}
}

func (sr *streamRegistry) subscribe(jobID, ownerID string) *streamSub {
	sub := &streamSub{
		id:      uuid.NewString(),
		jobID:   jobID,
		ownerID: ownerID,
		ch:      make(chan []byte, 64),
	}

	sr.mutex.Lock()
	sr.subs[sub.id] = sub
	sr.mutex.Unlock()

	return sub
}

func (sr *streamRegistry) unsubscribe(id string) {
	sr.mutex.Lock()
	defer sr.mutex.Unlock()

	if sub, exists := sr.subs[id]; exists {
		close(sub.ch)
		delete(sr.subs, id)
	}
}

// deliver - 구독자별 필터 적용 후 전달 (버퍼 가득이면 그냥 버림, at-most-once)
func (sr *streamRegistry) deliver(event Event, messageBytes []byte) {
	sr.mutex.RLock()
	defer sr.mutex.RUnlock()

	for _, sub := range sr.subs {
		if sub.jobID != event.JobID {
			continue
		}
		// 토큰에서 소유자를 알아냈고 이벤트에도 소유자가 있으면 둘이 일치해야 전달
		if sub.ownerID != "" && event.OwnerID != "" && sub.ownerID != event.OwnerID {
			continue
		}

		select {
		case sub.ch <- messageBytes:
		default:
		}
	}
}

func (sr *streamRegistry) count() int {
	sr.mutex.RLock()
	defer sr.mutex.RUnlock()
	return len(sr.subs)
}

// HandleEventStream - GET /api/jobs/{jobId}/events
// NDJSON으로 이벤트를 흘려보낸다. 토큰이 없거나 깨져 있어도 연결은 유지하고
// 잡 ID 매칭만으로 전달한다 (인증은 이 서버의 관심사가 아님, 필터링은 best-effort)
func (h *Hub) HandleEventStream(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ownerID := parseBearerOwner(r.Header.Get("Authorization"))

	sub := h.streams.subscribe(jobID, ownerID)
	defer h.streams.unsubscribe(sub.id)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Printf("📡 [Stream] Subscriber %s attached to job %s (owner: %q)", sub.id, jobID, ownerID)

	for {
		select {
		case <-r.Context().Done():
			log.Printf("📡 [Stream] Subscriber %s disconnected", sub.id)
			return
		case message, ok := <-sub.ch:
			if !ok {
				return
			}
			if _, err := w.Write(append(message, '\n')); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// parseBearerOwner - Bearer JWT의 payload에서 sub 클레임 추출
// 서명 검증은 하지 않는다: 필터링 강화용이지 인증이 아니고,
// 파싱에 실패하면 빈 문자열로 강등될 뿐 연결을 거부하지 않는다
func parseBearerOwner(authHeader string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return ""
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return ""
	}

	payload, err := base64.RawURLEncoding.DecodeString(segments[1])
	if err != nil {
		return ""
	}

	var claims struct {
		Sub string `json:"sub"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}

	return claims.Sub
}
