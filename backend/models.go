package main

import (
	"pixelwar/internal/canvas"
	"pixelwar/internal/pixelwar"
)

type InitialMessage struct {
	Type        string `json:"type"`
	Data        string `json:"data"`
	Width       uint32 `json:"width"`
	Height      uint32 `json:"height"`
	ClientCount int    `json:"clientCount"`
}

type OutgoingMessage struct {
	Type        string          `json:"type"`
	Data        *pixelwar.Pixel `json:"data,omitempty"`
	ClientCount int             `json:"clientCount"`
}

type IncomingMessage struct {
	Type string         `json:"type"`
	Data pixelwar.Pixel `json:"data"`
}

type RegionRequest struct {
	XStart uint32 `json:"xStart"`
	YStart uint32 `json:"yStart"`
	XEnd   uint32 `json:"xEnd"`
	YEnd   uint32 `json:"yEnd"`
}

type WhitenRequest struct {
	Start canvas.Point `json:"start"`
	End   canvas.Point `json:"end"`
}

type SizeRequest struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

type DelayRequest struct {
	Delay int64 `json:"delay"`
}

type ActiveRequest struct {
	Active bool `json:"active"`
}

type UserInfo struct {
	Admin bool `json:"admin"`
}
