// Package gpu runs the circuit's batched complex products on WebGPU.
//
// Complex values travel as interleaved float32 pairs (re, im). Every
// layer of a TransferSequence right-multiplies the batch by one
// 2^n × 2^n matrix in a compute pass, and layer outputs are copied
// straight into the next layer's input buffer so the state stays on the
// device until the final readback.
package gpu

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/openfluke/webgpu/wgpu"
)

// Logger reports adapter selection and, with Debug set, buffer and
// dispatch activity.
var Logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "gpu", Level: log.WarnLevel})

// Debug turns on per-dispatch logging.
var Debug = false

// Context holds the single WebGPU context for the process.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	once     sync.Once
	initErr  error
}

var ctx Context

// GetContext returns the process-wide GPU context, initializing it on
// first use. A failed initialization is remembered and returned on
// every later call.
func GetContext() (*Context, error) {
	ctx.once.Do(func() {
		ctx.initErr = ctx.init()
	})
	if ctx.initErr != nil {
		return nil, ctx.initErr
	}
	if ctx.Device == nil || ctx.Queue == nil {
		return nil, fmt.Errorf("WebGPU device or queue not initialized")
	}
	return &ctx, nil
}

func (c *Context) init() error {
	c.Instance = wgpu.CreateInstance(nil)
	if c.Instance == nil {
		return fmt.Errorf("failed to create WebGPU instance")
	}

	// Prefer a discrete NVIDIA adapter when one is listed.
	for _, a := range c.Instance.EnumerateAdapters(nil) {
		info := a.GetInfo()
		Logger.Debug("adapter", "name", info.Name, "vendor", info.VendorName, "type", info.AdapterType)
		if strings.Contains(strings.ToLower(info.Name), "nvidia") ||
			strings.Contains(strings.ToLower(info.VendorName), "nvidia") {
			c.Adapter = a
			break
		}
	}

	var err error
	for _, opts := range []*wgpu.RequestAdapterOptions{
		{PowerPreference: wgpu.PowerPreferenceHighPerformance},
		{PowerPreference: wgpu.PowerPreferenceLowPower},
		nil,
	} {
		if c.Adapter != nil {
			break
		}
		c.Adapter, err = c.Instance.RequestAdapter(opts)
		if err != nil {
			Logger.Warn("adapter request failed, falling back", "err", err)
		}
	}
	if c.Adapter == nil {
		return fmt.Errorf("all adapter attempts failed: %v", err)
	}

	info := c.Adapter.GetInfo()
	Logger.Info("using GPU adapter", "name", info.Name, "vendor", info.VendorName)

	c.Device, err = c.Adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("request device: %v", err)
	}
	c.Queue = c.Device.GetQueue()
	return nil
}

// Available reports whether a GPU context can be created.
func Available() bool {
	_, err := GetContext()
	return err == nil
}
