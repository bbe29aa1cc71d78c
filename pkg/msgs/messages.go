package msgs

import (
	"github.com/golang/protobuf/proto"
)

// RawData is a batch of raw bytes as received from the transport.
type RawData struct {
	Data      []byte `protobuf:"bytes,1,opt,name=data,proto3" json:"data,omitempty"`
	SessionID string `protobuf:"bytes,2,opt,name=session_id,proto3" json:"session_id,omitempty"`
}

// TypeID implements SerializableMessage.
func (m *RawData) TypeID() uint32 { return RawDataTypeID }

// ProtoMessage implements proto.Message.
func (m *RawData) ProtoMessage() {}

// Reset implements proto.Message.
func (m *RawData) Reset() { *m = RawData{} }

// String implements proto.Message.
func (m *RawData) String() string { return proto.CompactTextString(m) }

// ChannelData is a decoded channel snapshot.
type ChannelData struct {
	Channels    []uint32 `protobuf:"varint,1,rep,packed,name=channels,proto3" json:"channels,omitempty"`
	PulseWidths []uint32 `protobuf:"varint,2,rep,packed,name=pulse_widths,proto3" json:"pulse_widths,omitempty"`
	Timestamp   string   `protobuf:"bytes,3,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
	SessionID   string   `protobuf:"bytes,4,opt,name=session_id,proto3" json:"session_id,omitempty"`
}

// TypeID implements SerializableMessage.
func (m *ChannelData) TypeID() uint32 { return ChannelDataTypeID }

// ProtoMessage implements proto.Message.
func (m *ChannelData) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ChannelData) Reset() { *m = ChannelData{} }

// String implements proto.Message.
func (m *ChannelData) String() string { return proto.CompactTextString(m) }

// DeviceInfo describes a serial device.
type DeviceInfo struct {
	Path         string `protobuf:"bytes,1,opt,name=path,proto3" json:"path"`
	Product      string `protobuf:"bytes,2,opt,name=product,proto3" json:"product,omitempty"`
	SerialNumber string `protobuf:"bytes,3,opt,name=serial_number,proto3" json:"serial_number,omitempty"`
	VendorID     string `protobuf:"bytes,4,opt,name=vendor_id,proto3" json:"vendor_id,omitempty"`
	ProductID    string `protobuf:"bytes,5,opt,name=product_id,proto3" json:"product_id,omitempty"`
	USB          bool   `protobuf:"varint,6,opt,name=usb,proto3" json:"usb,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *DeviceInfo) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DeviceInfo) Reset() { *m = DeviceInfo{} }

// String implements proto.Message.
func (m *DeviceInfo) String() string { return proto.CompactTextString(m) }

// DeviceList is the result of a device scan.
type DeviceList struct {
	Devices []*DeviceInfo `protobuf:"bytes,1,rep,name=devices,proto3" json:"devices"`
}

// TypeID implements SerializableMessage.
func (m *DeviceList) TypeID() uint32 { return DeviceListTypeID }

// ProtoMessage implements proto.Message.
func (m *DeviceList) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DeviceList) Reset() { *m = DeviceList{} }

// String implements proto.Message.
func (m *DeviceList) String() string { return proto.CompactTextString(m) }

// TypeIDs
const (
	RawDataTypeID     uint32 = TypeIDKindFeed | 0x0001
	ChannelDataTypeID uint32 = TypeIDKindFeed | 0x0002
	DeviceListTypeID  uint32 = TypeIDKindInfo | 0x0001
)
