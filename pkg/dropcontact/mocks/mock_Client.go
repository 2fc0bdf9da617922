// Package mocks provides test doubles for the dropcontact client.
package mocks

import (
	"context"

	dropcontact "github.com/Xprriacst/google-maps-scraper/pkg/dropcontact"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Submit provides a mock function with given fields: ctx, req
func (_m *MockClient) Submit(ctx context.Context, req dropcontact.BatchRequest) (*dropcontact.SubmitResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Submit")
	}

	var r0 *dropcontact.SubmitResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, dropcontact.BatchRequest) (*dropcontact.SubmitResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, dropcontact.BatchRequest) *dropcontact.SubmitResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*dropcontact.SubmitResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, dropcontact.BatchRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetBatch provides a mock function with given fields: ctx, requestID
func (_m *MockClient) GetBatch(ctx context.Context, requestID string) (*dropcontact.BatchResult, error) {
	ret := _m.Called(ctx, requestID)

	if len(ret) == 0 {
		panic("no return value specified for GetBatch")
	}

	var r0 *dropcontact.BatchResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*dropcontact.BatchResult, error)); ok {
		return rf(ctx, requestID)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *dropcontact.BatchResult); ok {
		r0 = rf(ctx, requestID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*dropcontact.BatchResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, requestID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the
// mocks expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
