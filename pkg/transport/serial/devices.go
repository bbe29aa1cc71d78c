package serial

import (
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"

	"github.com/robotalks/sbus.go/pkg/msgs"
	"github.com/robotalks/sbus.go/pkg/transport"
)

var listPorts = enumerator.GetDetailedPortsList

// List enumerates serial devices on the system, sorted by path.
func List() ([]*msgs.DeviceInfo, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, &transport.Error{Op: "list", Err: err}
	}
	devices := make([]*msgs.DeviceInfo, 0, len(ports))
	for _, p := range ports {
		devices = append(devices, &msgs.DeviceInfo{
			Path:         p.Name,
			Product:      p.Product,
			SerialNumber: p.SerialNumber,
			VendorID:     p.VID,
			ProductID:    p.PID,
			USB:          p.IsUSB,
		})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices, nil
}

// IsUSB tells if a device is USB attached or looks like a USB adapter.
func IsUSB(d *msgs.DeviceInfo) bool {
	return d.USB ||
		strings.Contains(strings.ToLower(d.Product), "usb") ||
		strings.Contains(strings.ToLower(d.Path), "usb")
}

// FilterUSB keeps USB devices only.
func FilterUSB(devices []*msgs.DeviceInfo) []*msgs.DeviceInfo {
	return Filter(devices, IsUSB)
}

// FilterByName keeps devices whose path or product contains any of subs,
// case-insensitive. No subs keeps everything.
func FilterByName(devices []*msgs.DeviceInfo, subs ...string) []*msgs.DeviceInfo {
	if len(subs) == 0 {
		return devices
	}
	return Filter(devices, func(d *msgs.DeviceInfo) bool {
		path, product := strings.ToLower(d.Path), strings.ToLower(d.Product)
		for _, sub := range subs {
			sub = strings.ToLower(sub)
			if strings.Contains(path, sub) || strings.Contains(product, sub) {
				return true
			}
		}
		return false
	})
}

// Filter keeps devices accepted by fn.
func Filter(devices []*msgs.DeviceInfo, fn func(*msgs.DeviceInfo) bool) []*msgs.DeviceInfo {
	items := make([]*msgs.DeviceInfo, 0, len(devices))
	for _, d := range devices {
		if fn(d) {
			items = append(items, d)
		}
	}
	return items
}
