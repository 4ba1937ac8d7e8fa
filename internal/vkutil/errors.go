package vkutil

import (
	"github.com/pkg/errors"
	"github.com/vulkan-go/vulkan"
)

var (
	ErrNoDevice      = errors.New("no vulkan device available")
	ErrNoQueueFamily = errors.New("no graphics-capable queue family")
	ErrEmptyBuffer   = errors.New("buffer size must be positive")
)

// check wraps a non-success Vulkan result with the failed operation.
func check(res vulkan.Result, op string) error {
	if err := vulkan.Error(res); err != nil {
		return errors.Wrap(err, op)
	}
	return nil
}
