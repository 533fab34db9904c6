package model

import "errors"

var (
	ErrSlotOutOfRange   = errors.New("slot index out of range")
	ErrPageNotFound     = errors.New("page not found")
	ErrNoEmptySlot      = errors.New("no empty slot on page")
	ErrPageExists       = errors.New("page order already in use")
	ErrInvalidPageOrder = errors.New("page order outside the configurable range")
	ErrPanelNotFound    = errors.New("panel not found")
	ErrPanelExists      = errors.New("panel already registered")
)
