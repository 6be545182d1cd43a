package service

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceSharingDetected = errors.New("device sharing detected")
	ErrViolationNotFound     = errors.New("violation case not found")
	ErrCleanupInProgress     = errors.New("device cleanup already in progress")
	ErrCleanupLeaseHeld      = errors.New("device cleanup lease held by another instance")
)

// DeviceSharingError rejects a registration because the device is already active for other
// accounts in the same course.
type DeviceSharingError struct {
	DeviceID            string
	CourseID            string
	ConflictingAccounts int
	CaseID              string
}

func (e *DeviceSharingError) Error() string {
	return fmt.Sprintf("device sharing detected: device in use by %d other account(s) in course %s", e.ConflictingAccounts, e.CourseID)
}

func (e *DeviceSharingError) Is(target error) bool {
	return target == ErrDeviceSharingDetected
}
