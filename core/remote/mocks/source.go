package mocks

import (
	"context"

	"task-mirror/core/reconcile"

	"github.com/stretchr/testify/mock"
)

// Source is a mock implementation of remote.Source
type Source struct {
	mock.Mock
}

func (m *Source) FetchRoot(ctx context.Context) (reconcile.Record, error) {
	args := m.Called(ctx)
	rec, _ := args.Get(0).(reconcile.Record)
	return rec, args.Error(1)
}

func (m *Source) FetchUser(ctx context.Context) (reconcile.Record, error) {
	args := m.Called(ctx)
	rec, _ := args.Get(0).(reconcile.Record)
	return rec, args.Error(1)
}

func (m *Source) FetchLists(ctx context.Context) ([]reconcile.Record, error) {
	args := m.Called(ctx)
	recs, _ := args.Get(0).([]reconcile.Record)
	return recs, args.Error(1)
}

func (m *Source) FetchListPositions(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *Source) FetchTasks(ctx context.Context, listID int64, completed, subtasks bool) ([]reconcile.Record, error) {
	args := m.Called(ctx, listID, completed, subtasks)
	recs, _ := args.Get(0).([]reconcile.Record)
	return recs, args.Error(1)
}

func (m *Source) FetchTaskPositions(ctx context.Context, listID int64) ([]int64, error) {
	args := m.Called(ctx, listID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *Source) FetchSubtaskPositions(ctx context.Context, listID int64) ([]int64, error) {
	args := m.Called(ctx, listID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *Source) FetchReminders(ctx context.Context) ([]reconcile.Record, error) {
	args := m.Called(ctx)
	recs, _ := args.Get(0).([]reconcile.Record)
	return recs, args.Error(1)
}

func (m *Source) FetchSettings(ctx context.Context) ([]reconcile.Record, error) {
	args := m.Called(ctx)
	recs, _ := args.Get(0).([]reconcile.Record)
	return recs, args.Error(1)
}
