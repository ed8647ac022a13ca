package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskReconcileVendors = "reconcile.vendors"

const TaskReconcileLeads = "reconcile.leads"

// ReconcilePayload carries the batch trigger context. Trigger records who
// asked for the run: "cron" or "manual".
type ReconcilePayload struct {
	Trigger string `json:"trigger"`
}

func NewReconcileVendorsTask(payload ReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcileVendors, data), nil
}

func NewReconcileLeadsTask(payload ReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcileLeads, data), nil
}

func ParseReconcilePayload(task *asynq.Task) (ReconcilePayload, error) {
	var payload ReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ReconcilePayload{}, err
	}
	return payload, nil
}
