// ABOUTME: One-shot compute device selection for in-process model code
// ABOUTME: Honors DEVICE_TYPE, falls back to cpu for unsupported values
package device

import (
	"log"
	"os"
	"strings"
	"sync"
)

// Supported device names.
const (
	CPU  = "cpu"
	CUDA = "cuda"
	MPS  = "mps"
)

var (
	once     sync.Once
	selected string
)

// Select returns the compute device for local inference. The decision is
// made once per process so every component sees the same device.
func Select() string {
	once.Do(func() {
		selected = pick(os.Getenv("DEVICE_TYPE"))
	})
	return selected
}

func pick(requested string) string {
	switch strings.ToLower(requested) {
	case CUDA, MPS:
		return strings.ToLower(requested)
	case "", CPU:
		return CPU
	default:
		log.Printf("device: unsupported DEVICE_TYPE %q, using cpu", requested)
		return CPU
	}
}
