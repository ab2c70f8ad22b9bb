package http

import (
	"context"
	"errors"

	"github.com/mikestefanello/backlite"
)

type fakeQueue struct {
	enqueued []backlite.Task
	err      error
	status   backlite.TaskStatus
}

func (q *fakeQueue) Enqueue(task backlite.Task) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.enqueued = append(q.enqueued, task)
	return "task-1", nil
}

func (q *fakeQueue) Status(_ context.Context, taskID string) (backlite.TaskStatus, error) {
	if taskID == "broken" {
		return backlite.TaskStatusNotFound, errors.New("status lookup failed")
	}
	return q.status, nil
}
