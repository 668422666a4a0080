package hid

import (
	"fmt"
	"log/slog"

	sthid "github.com/sstallion/go-hid"
)

// USBTransport is the hidapi-backed Transport. Devices are matched against
// a configured set of VID/PID pairs; with no filters every HID device is
// reported, which is only useful on a test bench.
type USBTransport struct {
	filters []VendorProduct
	logger  *slog.Logger
}

// NewUSBTransport creates a transport restricted to the given VID/PID pairs.
func NewUSBTransport(filters []VendorProduct, logger *slog.Logger) *USBTransport {
	return &USBTransport{
		filters: filters,
		logger:  logger.With("component", "hid"),
	}
}

// Initialize initializes the hidapi library.
func (t *USBTransport) Initialize() error {
	if err := sthid.Init(); err != nil {
		return fmt.Errorf("hidapi init: %w", err)
	}
	return nil
}

// Shutdown finalizes the hidapi library.
func (t *USBTransport) Shutdown() {
	if err := sthid.Exit(); err != nil {
		t.logger.Warn("hidapi exit", "err", err)
	}
}

// Enumerate walks the currently attached devices matching the configured
// filters. One call is one pass; hidapi gives no ordering guarantee between
// passes.
func (t *USBTransport) Enumerate() ([]DeviceInfo, error) {
	var infos []DeviceInfo
	collect := func(info *sthid.DeviceInfo) error {
		infos = append(infos, DeviceInfo{
			Path:      info.Path,
			VendorID:  info.VendorID,
			ProductID: info.ProductID,
			Serial:    info.SerialNbr,
			Product:   info.ProductStr,
		})
		return nil
	}

	if len(t.filters) == 0 {
		if err := sthid.Enumerate(sthid.VendorIDAny, sthid.ProductIDAny, collect); err != nil {
			return nil, fmt.Errorf("hid enumerate: %w", err)
		}
		return infos, nil
	}
	for _, f := range t.filters {
		if err := sthid.Enumerate(f.VendorID, f.ProductID, collect); err != nil {
			return nil, fmt.Errorf("hid enumerate %04x:%04x: %w", f.VendorID, f.ProductID, err)
		}
	}
	return infos, nil
}

// Open opens the device by path and puts it into non-blocking read mode.
func (t *USBTransport) Open(info DeviceInfo) (Device, error) {
	dev, err := sthid.OpenPath(info.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", info.Path, err)
	}
	if err := dev.SetNonblocking(true); err != nil {
		dev.Close()
		return nil, fmt.Errorf("set nonblocking %s: %w", info.Path, err)
	}
	return &usbDevice{dev: dev, logger: t.logger}, nil
}

type usbDevice struct {
	dev    *sthid.Device
	logger *slog.Logger
	buf    [InputReportLen]byte
}

func (d *usbDevice) Read(sample *Sample) ReadStatus {
	n, err := d.dev.Read(d.buf[:])
	if err != nil {
		return ReadFailure
	}
	if n == 0 {
		return ReadNoData
	}
	if err := DecodeInputReport(d.buf[:n], sample); err != nil {
		// Short or foreign report; skip it rather than killing the link.
		d.logger.Debug("bad input report", "err", err)
		return ReadNoData
	}
	return ReadNewData
}

func (d *usbDevice) SetRumble(amount uint8) error {
	if _, err := d.dev.Write(EncodeRumbleReport(amount)); err != nil {
		return fmt.Errorf("rumble write: %w", err)
	}
	return nil
}

func (d *usbDevice) Close() error {
	return d.dev.Close()
}
