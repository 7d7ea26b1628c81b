package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ethoparts/marketplace-backend/pkg/logger"
)

func TestOutboxRetentionJobPrunesBeforeCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxPruner{}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         passthroughTx{},
		Repository: repo,
		Retention:  48 * time.Hour,
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)
	assert.Equal(t, "outbox-retention", job.Name())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, repo.calls)
	assert.True(t, repo.cutoff.Equal(now.Add(-48*time.Hour)))
	assert.Equal(t, outboxMinAttempts, repo.minAttempts)
}

func TestOutboxRetentionJobDefaultsAndErrors(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxPruner{err: errors.New("boom")}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		DB:         passthroughTx{},
		Repository: repo,
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, repo.err)
	assert.True(t, repo.cutoff.Equal(now.Add(-defaultOutboxRetention)))

	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger(), DB: passthroughTx{}})
	assert.Error(t, err)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type fakeOutboxPruner struct {
	cutoff      time.Time
	minAttempts int
	calls       int
	err         error
}

func (f *fakeOutboxPruner) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	f.minAttempts = minAttemptCount
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
