package history_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/tac2ar/internal/app/history"
	"github.com/slok/tac2ar/internal/log"
	"github.com/slok/tac2ar/internal/model"
	"github.com/slok/tac2ar/internal/storage/storagemock"
)

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config history.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: history.ServiceConfig{
				Repository: &storagemock.MockRunRepository{},
				Logger:     log.Noop,
			},
		},
		"missing repository should fail": {
			config: history.ServiceConfig{Logger: log.Noop},
			expErr: true,
		},
		"nil logger should default to noop": {
			config: history.ServiceConfig{Repository: &storagemock.MockRunRepository{}},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			svc, err := history.NewService(test.config)

			if test.expErr {
				require.Error(err)
				require.Nil(svc)
			} else {
				require.NoError(err)
				require.NotNil(svc)
			}
		})
	}
}

func TestService_Run(t *testing.T) {
	startedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	failed := model.RunStatusFailed

	runs := []model.Run{
		{ID: "id3", Status: model.RunStatusFailed, StartedAt: startedAt.Add(2 * time.Hour)},
		{ID: "id2", Status: model.RunStatusSucceeded, StartedAt: startedAt.Add(time.Hour)},
		{ID: "id1", Status: model.RunStatusFailed, StartedAt: startedAt},
	}

	tests := map[string]struct {
		mock      func(m *storagemock.MockRunRepository)
		req       history.Request
		expResult []model.Run
		expErr    bool
	}{
		"list runs with a limit": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, 2).Once().Return(runs[:2], nil)
			},
			req:       history.Request{Limit: 2},
			expResult: runs[:2],
		},
		"filter by status should apply the limit after filtering": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, 0).Once().Return(runs, nil)
			},
			req:       history.Request{Limit: 1, StatusFilter: &failed},
			expResult: []model.Run{runs[0]},
		},
		"filter by status without limit": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, 0).Once().Return(runs, nil)
			},
			req:       history.Request{StatusFilter: &failed},
			expResult: []model.Run{runs[0], runs[2]},
		},
		"empty repository returns empty list": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, 0).Once().Return([]model.Run{}, nil)
			},
			req:       history.Request{},
			expResult: []model.Run{},
		},
		"repository error should propagate": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, 10).Once().Return(nil, fmt.Errorf("database error"))
			},
			req:    history.Request{Limit: 10},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			m := &storagemock.MockRunRepository{}
			test.mock(m)

			svc, err := history.NewService(history.ServiceConfig{Repository: m, Logger: log.Noop})
			require.NoError(err)

			result, err := svc.Run(context.Background(), test.req)

			if test.expErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
				assert.Equal(test.expResult, result)
			}

			m.AssertExpectations(t)
		})
	}
}
