package config

import (
	"fmt"
	"strings"
)

// Precision is the per channel storage format of a stage's render target.
type Precision uint8

const (
	U8 Precision = iota // Default.
	F16
	F32
)

func (p Precision) String() string {
	switch p {
	case U8:
		return "u8"
	case F16:
		return "f16"
	case F32:
		return "f32"
	}
	return fmt.Sprintf("Precision(%d)", uint8(p))
}

func (p Precision) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Precision) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "u8", "":
		*p = U8
	case "f16":
		*p = F16
	case "f32":
		*p = F32
	default:
		return fmt.Errorf("unknown precision %q, want u8, f16 or f32", text)
	}
	return nil
}

// Sampler is the texture filtering used when a stage samples an input.
type Sampler uint8

const (
	Linear Sampler = iota // Default.
	Nearest
	Mipmaps
)

func (s Sampler) String() string {
	switch s {
	case Linear:
		return "linear"
	case Nearest:
		return "nearest"
	case Mipmaps:
		return "mipmaps"
	}
	return fmt.Sprintf("Sampler(%d)", uint8(s))
}

func (s Sampler) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Sampler) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "linear", "":
		*s = Linear
	case "nearest":
		*s = Nearest
	case "mipmaps":
		*s = Mipmaps
	default:
		return fmt.Errorf("unknown sampler %q, want linear, nearest or mipmaps", text)
	}
	return nil
}

// InputType selects the provider of an [Input].
type InputType uint8

const (
	InputPicture InputType = iota + 1
	InputVideo
	InputCam
	InputMidi
)

func (t InputType) String() string {
	switch t {
	case InputPicture:
		return "picture"
	case InputVideo:
		return "video"
	case InputCam:
		return "cam"
	case InputMidi:
		return "midi"
	}
	return fmt.Sprintf("InputType(%d)", uint8(t))
}

func (t InputType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *InputType) UnmarshalText(text []byte) error {
	for _, candidate := range [...]InputType{InputPicture, InputVideo, InputCam, InputMidi} {
		if strings.EqualFold(string(text), candidate.String()) {
			*t = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown input type %q", text)
}
