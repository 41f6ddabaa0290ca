// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package testimonial

import "time"

// AutoplayInterval is how long the storefront shows one testimonial before
// moving to the next. Hovering the strip pauses it.
const AutoplayInterval = 5 * time.Second

// Slider is the position of the testimonial carousel. The zero value is an
// empty slider; all moves on it stay at zero.
type Slider struct {
	total int
	index int
}

// NewSlider returns a slider over total items positioned at start (wrapped).
func NewSlider(total, start int) Slider {
	return Slider{total: total}.GoTo(start)
}

func (slider Slider) Total() int { return slider.total }
func (slider Slider) Index() int { return slider.index }

// Empty reports whether there is nothing to show.
func (slider Slider) Empty() bool { return slider.total == 0 }

// Next moves one item forward, wrapping to the first.
func (slider Slider) Next() Slider {
	if slider.total == 0 {
		return slider
	}
	slider.index = (slider.index + 1) % slider.total
	return slider
}

// Prev moves one item back, wrapping to the last.
func (slider Slider) Prev() Slider {
	if slider.total == 0 {
		return slider
	}
	slider.index = (slider.index - 1 + slider.total) % slider.total
	return slider
}

// GoTo jumps to i modulo the item count.
func (slider Slider) GoTo(i int) Slider {
	if slider.total == 0 {
		return slider
	}
	slider.index = ((i % slider.total) + slider.total) % slider.total
	return slider
}

// Autoplays reports whether the strip should advance on its own.
func (slider Slider) Autoplays() bool { return slider.total > 1 }

// Dots lists every position, for the dot navigation.
func (slider Slider) Dots() []int {
	dots := make([]int, slider.total)
	for i := range dots {
		dots[i] = i
	}
	return dots
}
