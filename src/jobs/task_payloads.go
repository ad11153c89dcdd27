package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TypeRecalculateStatistics = "statistics:recalculate"

// RecalculatePayload says why a recalculation was requested; it is only logged.
type RecalculatePayload struct {
	Reason string `json:"reason"`
}

func NewRecalculateStatisticsTask(reason string) (*asynq.Task, error) {
	payload, err := json.Marshal(RecalculatePayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRecalculateStatistics, payload), nil
}
