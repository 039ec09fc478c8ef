package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

func TestHealthChecker(t *testing.T) {
	cases := []struct {
		name     string
		emb      *fakeEmbedder
		idx      *fakeIndex
		status   string
		services map[string]string
	}{
		{
			name:   "all healthy",
			emb:    &fakeEmbedder{dim: 4},
			idx:    &fakeIndex{},
			status: StatusHealthy,
			services: map[string]string{
				"embedding":    StatusHealthy,
				"vector_store": StatusHealthy,
			},
		},
		{
			name:   "store down",
			emb:    &fakeEmbedder{dim: 4},
			idx:    &fakeIndex{searchErr: errors.Join(domain.ErrSearchFailed, errProvider)},
			status: StatusDegraded,
			services: map[string]string{
				"embedding":    StatusHealthy,
				"vector_store": StatusUnhealthy,
			},
		},
		{
			name:   "embedder down",
			emb:    &fakeEmbedder{dim: 4, err: errProvider},
			idx:    &fakeIndex{},
			status: StatusDegraded,
			services: map[string]string{
				"embedding":    StatusUnhealthy,
				"vector_store": StatusHealthy,
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			report := NewHealthChecker(tc.emb, tc.idx, time.Second).Check(t.Context())
			assert.Equal(t, tc.status, report.Status)
			assert.Equal(t, tc.services, report.Services)
			assert.False(t, report.Timestamp.IsZero())
		})
	}
}

func TestHealthChecker_ProbesWithZeroVector(t *testing.T) {
	idx := &fakeIndex{}
	NewHealthChecker(&fakeEmbedder{dim: 4}, idx, 0).Check(t.Context())
	assert.Equal(t, 1, idx.lastK)
	assert.True(t, idx.lastF.IsEmpty())
}
