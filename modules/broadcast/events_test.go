package broadcast

import (
	"encoding/json"
	"strings"
	"testing"
)

// 카운터 필드들은 0이 유효한 값이라 직렬화에서 빠지면 안 된다
func TestEventJSONKeepsZeroValuedCounters(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  []string
	}{
		{
			name:  "first shot carries index 0",
			event: NewShotProcessing("job-a", "", "duo", "Duo Editorial", 0),
			want:  []string{`"index":0`, `"shotKind":"duo"`, `"label":"Duo Editorial"`},
		},
		{
			name:  "total failure complete carries completed 0",
			event: NewComplete("job-a", "", "failed", 0, 6, nil),
			want:  []string{`"completed":0`, `"total":6`, `"status":"failed"`},
		},
		{
			name:  "initial progress carries percent 0",
			event: NewProgress("job-a", "", 0, 0, 6, 0),
			want:  []string{`"percent":0`, `"completed":0`, `"total":6`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			for _, field := range tt.want {
				if !strings.Contains(string(data), field) {
					t.Errorf("serialized event missing %s:\n%s", field, data)
				}
			}
		})
	}
}

// 익명 구독 이벤트에 빈 ownerId가 따라붙으면 안 됨
func TestEventJSONOmitsEmptyOwner(t *testing.T) {
	data, err := json.Marshal(NewShotProcessing("job-a", "", "solo", "Solo Editorial", 1))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), `"ownerId"`) {
		t.Errorf("empty owner must be omitted:\n%s", data)
	}
}
