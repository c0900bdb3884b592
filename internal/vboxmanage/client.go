package vboxmanage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// DefaultBinary is the VBoxManage executable looked up on PATH
const DefaultBinary = "VBoxManage"

var (
	// ErrVMNotFound is returned when no registered VM matches a name or UUID
	ErrVMNotFound = errors.New("vm not found")

	errorRe = regexp.MustCompile(`(?i)error`)
)

// CommandExecutor interface for testability
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// RealExecutor uses actual exec.CommandContext
type RealExecutor struct{}

// Execute runs a command and returns stdout and stderr
func (e RealExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), stderr.Bytes(), &VBoxManageError{
			Command: commandLine(name, args),
			Stderr:  stderr.String(),
			Err:     err,
		}
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

// VBoxManageError reports a failed or suspicious VBoxManage invocation.
// Err is nil when the process exited cleanly but wrote to stderr or
// printed a warning.
type VBoxManageError struct {
	Command string
	Stderr  string
	Warning string
	Err     error
}

func (e *VBoxManageError) Error() string {
	switch {
	case e.Warning != "":
		return fmt.Sprintf("VBoxManage command warned: %s\n%s", e.Command, e.Warning)
	case e.Stderr != "":
		return fmt.Sprintf("VBoxManage command failed: %s\nstderr: %s", e.Command, strings.TrimSpace(e.Stderr))
	default:
		return fmt.Sprintf("VBoxManage command failed: %s: %v", e.Command, e.Err)
	}
}

func (e *VBoxManageError) Unwrap() error {
	return e.Err
}

// Client interface for VBoxManage operations
type Client interface {
	// Machines
	ListVMs(ctx context.Context) ([]VM, error)
	FindVM(ctx context.Context, nameOrUUID string) (*VM, error)
	ShowVMInfo(ctx context.Context, vmUUID string) (VMInfo, error)
	CreateVM(ctx context.Context, name, ostype string) error
	ModifyVM(ctx context.Context, vmUUID, option, value string) error
	ListOSTypes(ctx context.Context) ([]OSType, error)

	// Media
	ListHDDs(ctx context.Context) (string, error)
	ListMediaUUIDs(ctx context.Context, kind MediaKind) ([]string, error)
	CloneHD(ctx context.Context, srcUUID, dest, format string) error

	// Storage
	StorageCtl(ctx context.Context, vmUUID string, opts StorageControllerOptions) error
	StorageAttach(ctx context.Context, vmUUID string, opts StorageAttachOptions) error
}

// Option configures a client
type Option func(*client)

// WithBinary overrides the VBoxManage executable
func WithBinary(path string) Option {
	return func(c *client) {
		if path != "" {
			c.binary = path
		}
	}
}

// WithLogger sets the logger used to trace executed commands
func WithLogger(log *zap.Logger) Option {
	return func(c *client) {
		if log != nil {
			c.log = log
		}
	}
}

// client implements Client using the VBoxManage CLI
type client struct {
	executor CommandExecutor
	binary   string
	log      *zap.Logger
}

// NewClient creates a new VBoxManage client with the given executor
func NewClient(executor CommandExecutor, opts ...Option) Client {
	c := &client{executor: executor, binary: DefaultBinary, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRealClient creates a client that executes real VBoxManage commands
func NewRealClient(opts ...Option) Client {
	return NewClient(RealExecutor{}, opts...)
}

// exec runs VBoxManage and returns its raw output
func (c *client) exec(ctx context.Context, args []string) (stdout, stderr []byte, err error) {
	c.log.Debug("running VBoxManage", zap.String("binary", c.binary), zap.Strings("args", args))
	return c.executor.Execute(ctx, c.binary, args...)
}

// run executes VBoxManage and treats any stderr output or leading
// warning as a failure.
func (c *client) run(ctx context.Context, args ...string) (string, error) {
	stdout, stderr, err := c.exec(ctx, args)
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(stderr)) > 0 {
		return "", &VBoxManageError{Command: commandLine(c.binary, args), Stderr: string(stderr)}
	}
	if warning := CheckWarning(string(stdout)); warning != "" {
		return "", &VBoxManageError{Command: commandLine(c.binary, args), Warning: warning}
	}
	return string(stdout), nil
}

// ListVMs returns all registered VMs
func (c *client) ListVMs(ctx context.Context) ([]VM, error) {
	out, err := c.run(ctx, "list", "vms")
	if err != nil {
		return nil, err
	}
	vms, err := ParseVMList(out)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vm list: %w", err)
	}
	return vms, nil
}

// FindVM returns the single VM whose name or UUID equals nameOrUUID
func (c *client) FindVM(ctx context.Context, nameOrUUID string) (*VM, error) {
	vms, err := c.ListVMs(ctx)
	if err != nil {
		return nil, err
	}

	var found []VM
	for _, vm := range vms {
		if vm.Name == nameOrUUID || vm.UUID == nameOrUUID {
			found = append(found, vm)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrVMNotFound, nameOrUUID)
	case 1:
		return &found[0], nil
	default:
		return nil, fmt.Errorf("vm name %q is ambiguous: %d machines match", nameOrUUID, len(found))
	}
}

// ShowVMInfo returns the machine-readable settings of a VM
func (c *client) ShowVMInfo(ctx context.Context, vmUUID string) (VMInfo, error) {
	out, err := c.run(ctx, "showvminfo", vmUUID, "--machinereadable")
	if err != nil {
		return nil, err
	}
	info, err := ParseVMInfo(out)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vm info: %w", err)
	}
	return info, nil
}

// CreateVM creates and registers an empty VM
func (c *client) CreateVM(ctx context.Context, name, ostype string) error {
	_, err := c.run(ctx, "createvm", "--name", name, "--register", "--ostype", ostype)
	return err
}

// ModifyVM sets a single --option on a VM
func (c *client) ModifyVM(ctx context.Context, vmUUID, option, value string) error {
	_, err := c.run(ctx, "modifyvm", vmUUID, "--"+option, value)
	return err
}

// ListOSTypes returns the guest OS types VirtualBox knows
func (c *client) ListOSTypes(ctx context.Context) ([]OSType, error) {
	out, err := c.run(ctx, "list", "ostypes")
	if err != nil {
		return nil, err
	}
	return ParseOSTypes(out), nil
}

// ListHDDs returns the raw `list hdds` output
func (c *client) ListHDDs(ctx context.Context) (string, error) {
	return c.run(ctx, "list", string(MediaHDDs))
}

// ListMediaUUIDs returns the UUIDs of all media of the given kind
func (c *client) ListMediaUUIDs(ctx context.Context, kind MediaKind) ([]string, error) {
	out, err := c.run(ctx, "list", string(kind))
	if err != nil {
		return nil, err
	}
	return ParseMediaUUIDs(out), nil
}

// CloneHD copies a disk image to dest. VBoxManage prints progress on
// stderr here, so stderr only counts as a failure if it mentions an error.
func (c *client) CloneHD(ctx context.Context, srcUUID, dest, format string) error {
	args := []string{"clonehd", srcUUID, dest}
	if format != "" {
		args = append(args, "--format", format)
	}
	_, stderr, err := c.exec(ctx, args)
	if err != nil {
		return err
	}
	if errorRe.Match(stderr) {
		return &VBoxManageError{Command: commandLine(c.binary, args), Stderr: string(stderr)}
	}
	return nil
}

// StorageCtl adds a storage controller to a VM
func (c *client) StorageCtl(ctx context.Context, vmUUID string, opts StorageControllerOptions) error {
	args := []string{"storagectl", vmUUID, "--name", opts.Name, "--controller", opts.Controller}
	if opts.Bootable != "" {
		args = append(args, "--bootable", opts.Bootable)
	}
	args = append(args, "--add", opts.Bus)

	_, err := c.run(ctx, args...)
	return err
}

// StorageAttach attaches a medium to a controller slot
func (c *client) StorageAttach(ctx context.Context, vmUUID string, opts StorageAttachOptions) error {
	args := []string{"storageattach", vmUUID,
		"--storagectl", opts.Controller,
		"--port", opts.Port,
		"--device", opts.Device,
		"--medium", opts.Medium,
	}
	if opts.Type != "" {
		args = append(args, "--type", opts.Type)
	}

	_, err := c.run(ctx, args...)
	return err
}

func commandLine(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
