package service

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mergeanddown/internal/core/domain"
)

// jobSequence numbers jobs for the lifetime of the process.
var jobSequence atomic.Uint64

// newJobToken combines a time-ordered UUID with the job sequence number, so
// two jobs can only collide if both the UUID and the counter repeat.
func newJobToken() (string, uint64) {
	seq := jobSequence.Add(1)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return fmt.Sprintf("%s-%d", id.String(), seq), seq
}

func newMergeJob(req domain.MergeRequest) *domain.MergeJob {
	token, seq := newJobToken()
	return &domain.MergeJob{
		Token:     token,
		Seq:       seq,
		Request:   req,
		CreatedAt: time.Now().UTC(),
	}
}
