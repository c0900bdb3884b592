// Package testutil provides shared test utilities and mocks
package testutil

import (
	"context"

	"github.com/mjshashank/vboxclonevm/internal/vboxmanage"
	"github.com/stretchr/testify/mock"
)

// MockVBoxClient is a testify mock for vboxmanage.Client
type MockVBoxClient struct {
	mock.Mock
}

// Ensure MockVBoxClient implements vboxmanage.Client
var _ vboxmanage.Client = (*MockVBoxClient)(nil)

// ListVMs mocks the ListVMs method
func (m *MockVBoxClient) ListVMs(ctx context.Context) ([]vboxmanage.VM, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vboxmanage.VM), args.Error(1)
}

// FindVM mocks the FindVM method
func (m *MockVBoxClient) FindVM(ctx context.Context, nameOrUUID string) (*vboxmanage.VM, error) {
	args := m.Called(ctx, nameOrUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vboxmanage.VM), args.Error(1)
}

// ShowVMInfo mocks the ShowVMInfo method
func (m *MockVBoxClient) ShowVMInfo(ctx context.Context, vmUUID string) (vboxmanage.VMInfo, error) {
	args := m.Called(ctx, vmUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(vboxmanage.VMInfo), args.Error(1)
}

// CreateVM mocks the CreateVM method
func (m *MockVBoxClient) CreateVM(ctx context.Context, name, ostype string) error {
	args := m.Called(ctx, name, ostype)
	return args.Error(0)
}

// ModifyVM mocks the ModifyVM method
func (m *MockVBoxClient) ModifyVM(ctx context.Context, vmUUID, option, value string) error {
	args := m.Called(ctx, vmUUID, option, value)
	return args.Error(0)
}

// ListOSTypes mocks the ListOSTypes method
func (m *MockVBoxClient) ListOSTypes(ctx context.Context) ([]vboxmanage.OSType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vboxmanage.OSType), args.Error(1)
}

// ListHDDs mocks the ListHDDs method
func (m *MockVBoxClient) ListHDDs(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// ListMediaUUIDs mocks the ListMediaUUIDs method
func (m *MockVBoxClient) ListMediaUUIDs(ctx context.Context, kind vboxmanage.MediaKind) ([]string, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// CloneHD mocks the CloneHD method
func (m *MockVBoxClient) CloneHD(ctx context.Context, srcUUID, dest, format string) error {
	args := m.Called(ctx, srcUUID, dest, format)
	return args.Error(0)
}

// StorageCtl mocks the StorageCtl method
func (m *MockVBoxClient) StorageCtl(ctx context.Context, vmUUID string, opts vboxmanage.StorageControllerOptions) error {
	args := m.Called(ctx, vmUUID, opts)
	return args.Error(0)
}

// StorageAttach mocks the StorageAttach method
func (m *MockVBoxClient) StorageAttach(ctx context.Context, vmUUID string, opts vboxmanage.StorageAttachOptions) error {
	args := m.Called(ctx, vmUUID, opts)
	return args.Error(0)
}
