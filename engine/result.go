package engine

import (
	"github.com/matty/go-lighthouse-manager/lighthouse"
)

// Error codes shared by every frontend. They double as process exit codes.
const (
	CodeSuccess        = 0
	CodeGeneralError   = 1
	CodeBluetoothError = 2
	CodeNoDevicesFound = 3
	CodeCommandFailed  = 4
	CodeSteamVRError   = 5
)

// Result is the uniform contract returned to every caller. Frontends only
// format it; they never reach into BLE or cache internals.
type Result struct {
	Success   bool                      `json:"success"`
	Message   string                    `json:"message"`
	Devices   []lighthouse.DeviceRecord `json:"devices"`
	ErrorCode int                       `json:"error_code"`
}

func SuccessResult(message string, devices []lighthouse.DeviceRecord) Result {
	if devices == nil {
		devices = []lighthouse.DeviceRecord{}
	}

	return Result{
		Success:   true,
		Message:   message,
		Devices:   devices,
		ErrorCode: CodeSuccess,
	}
}

func ErrorResult(message string, code int) Result {
	return Result{
		Message:   message,
		Devices:   []lighthouse.DeviceRecord{},
		ErrorCode: code,
	}
}
