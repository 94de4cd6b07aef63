// ABOUTME: Wire message definitions for the device control protocol
// ABOUTME: JSON framing of handshake, device list, and actuator commands
package device

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the message spec version sent during the handshake.
const ProtocolVersion = 3

// The wire format frames every message as a single-key object inside a
// JSON array, keyed by message name: [{"RequestServerInfo": {...}}].

// RequestServerInfo initiates the handshake.
type RequestServerInfo struct {
	ID             uint32 `json:"Id"`
	ClientName     string `json:"ClientName"`
	MessageVersion int    `json:"MessageVersion"`
}

// ServerInfo is the server's handshake response.
type ServerInfo struct {
	ID             uint32 `json:"Id"`
	ServerName     string `json:"ServerName"`
	MessageVersion int    `json:"MessageVersion"`
	MaxPingTime    int    `json:"MaxPingTime"`
}

// IDOnly covers messages whose payload is just a message ID
// (RequestDeviceList, StartScanning, StopScanning, StopAllDevices, Ok).
type IDOnly struct {
	ID uint32 `json:"Id"`
}

// ServerError reports a rejected or failed message.
type ServerError struct {
	ID           uint32 `json:"Id"`
	ErrorMessage string `json:"ErrorMessage"`
	ErrorCode    int    `json:"ErrorCode"`
}

// ScalarFeature describes one scalar actuator on a device.
type ScalarFeature struct {
	StepCount         int    `json:"StepCount"`
	ActuatorType      string `json:"ActuatorType"`
	FeatureDescriptor string `json:"FeatureDescriptor,omitempty"`
}

// DeviceMessages lists the command families a device accepts.
type DeviceMessages struct {
	ScalarCmd []ScalarFeature `json:"ScalarCmd,omitempty"`
	LinearCmd []ScalarFeature `json:"LinearCmd,omitempty"`
	RotateCmd []ScalarFeature `json:"RotateCmd,omitempty"`
}

// DeviceInfo describes one connected device.
type DeviceInfo struct {
	DeviceIndex    uint32         `json:"DeviceIndex"`
	DeviceName     string         `json:"DeviceName"`
	DeviceMessages DeviceMessages `json:"DeviceMessages"`
}

// DeviceList is the response to RequestDeviceList.
type DeviceList struct {
	ID      uint32       `json:"Id"`
	Devices []DeviceInfo `json:"Devices"`
}

// DeviceAdded announces a newly available device.
type DeviceAdded struct {
	ID uint32 `json:"Id"`
	DeviceInfo
}

// DeviceRemoved announces a disconnected device.
type DeviceRemoved struct {
	ID          uint32 `json:"Id"`
	DeviceIndex uint32 `json:"DeviceIndex"`
}

// Scalar is one actuator target within a ScalarCmd.
type Scalar struct {
	Index        uint32  `json:"Index"`
	Scalar       float64 `json:"Scalar"`
	ActuatorType string  `json:"ActuatorType"`
}

// ScalarCmd drives a device's scalar actuators.
type ScalarCmd struct {
	ID          uint32   `json:"Id"`
	DeviceIndex uint32   `json:"DeviceIndex"`
	Scalars     []Scalar `json:"Scalars"`
}

// StopDeviceCmd halts a single device.
type StopDeviceCmd struct {
	ID          uint32 `json:"Id"`
	DeviceIndex uint32 `json:"DeviceIndex"`
}

// Envelope pairs a message name with its undecoded payload.
type Envelope struct {
	Name    string
	Payload json.RawMessage
}

// Encode frames one message for the wire.
func Encode(name string, payload interface{}) ([]byte, error) {
	return json.Marshal([]map[string]interface{}{{name: payload}})
}

// Decode splits a wire frame into its envelopes in order.
func Decode(data []byte) ([]Envelope, error) {
	var frames []map[string]json.RawMessage
	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("invalid message frame: %w", err)
	}

	var msgs []Envelope
	for _, frame := range frames {
		for name, payload := range frame {
			msgs = append(msgs, Envelope{Name: name, Payload: payload})
		}
	}
	return msgs, nil
}
