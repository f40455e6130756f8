package broadcast

import (
	"time"

	"github.com/google/uuid"

	"modashot-server/modules/common/model"
)

// 이벤트 타입 - 잡 하나의 생명주기 동안 이 네 가지만 나간다
const (
	EventShotProcessing = "shot_processing"
	EventShotCompleted  = "shot_completed"
	EventProgress       = "progress"
	EventComplete       = "complete"
)

// Event - 브로드캐스트 이벤트 (websocket과 NDJSON 스트림 공용)
type Event struct {
	EventID   string    `json:"eventId"`
	Type      string    `json:"type"`
	JobID     string    `json:"jobId"`
	OwnerID   string    `json:"ownerId,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// shot_* 이벤트
	// index/percent/completed/total은 0이 유효한 값이라 omitempty를 붙이면 안 된다
	ShotKind string `json:"shotKind,omitempty"`
	Label    string `json:"label,omitempty"`
	Index    int    `json:"index"`
	Status   string `json:"status,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Error    string `json:"error,omitempty"`

	// progress / complete 이벤트
	Percent        int                `json:"percent"`
	Completed      int                `json:"completed"`
	Total          int                `json:"total"`
	ElapsedSeconds float64            `json:"elapsedSeconds,omitempty"`
	Results        []model.ShotResult `json:"results,omitempty"`
}

func newEvent(eventType, jobID, ownerID string) Event {
	return Event{
		EventID:   uuid.NewString(),
		Type:      eventType,
		JobID:     jobID,
		OwnerID:   ownerID,
		Timestamp: time.Now().UTC(),
	}
}

// NewShotProcessing - 샷 디스패치 시점
func NewShotProcessing(jobID, ownerID, shotKind, label string, index int) Event {
	e := newEvent(EventShotProcessing, jobID, ownerID)
	e.ShotKind = shotKind
	e.Label = label
	e.Index = index
	return e
}

// NewShotCompleted - 샷 종결 시점 (성공/실패 공용, Status로 구분)
func NewShotCompleted(jobID, ownerID, shotKind, label string, index int, status, imageURL, errMsg string) Event {
	e := newEvent(EventShotCompleted, jobID, ownerID)
	e.ShotKind = shotKind
	e.Label = label
	e.Index = index
	e.Status = status
	e.ImageURL = imageURL
	e.Error = errMsg
	return e
}

// NewProgress - 샷 종결마다 한 번
func NewProgress(jobID, ownerID string, percent, completed, total int, elapsed time.Duration) Event {
	e := newEvent(EventProgress, jobID, ownerID)
	e.Percent = percent
	e.Completed = completed
	e.Total = total
	e.ElapsedSeconds = elapsed.Seconds()
	return e
}

// NewComplete - 잡 종결, 모든 shot_completed 이후에만 나간다
func NewComplete(jobID, ownerID, status string, completed, total int, results []model.ShotResult) Event {
	e := newEvent(EventComplete, jobID, ownerID)
	e.Status = status
	e.Completed = completed
	e.Total = total
	e.Results = results
	return e
}
