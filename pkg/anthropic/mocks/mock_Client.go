// Package mocks provides test doubles for the anthropic client.
package mocks

import (
	"context"

	anthropic "github.com/Xprriacst/google-maps-scraper/pkg/anthropic"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Complete provides a mock function with given fields: ctx, p
func (_m *MockClient) Complete(ctx context.Context, p anthropic.Prompt) (*anthropic.Reply, error) {
	ret := _m.Called(ctx, p)

	if len(ret) == 0 {
		panic("no return value specified for Complete")
	}

	if rf, ok := ret.Get(0).(func(context.Context, anthropic.Prompt) (*anthropic.Reply, error)); ok {
		return rf(ctx, p)
	}

	var r0 *anthropic.Reply
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*anthropic.Reply)
	}
	return r0, ret.Error(1)
}

// NewMockClient creates a MockClient that asserts its expectations when
// the test ends.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
