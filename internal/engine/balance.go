package engine

import "fmt"

// Balance accounts for every unit of launched weight. Its Total equals the
// number of histories up to floating point rounding.
type Balance struct {
	Specular    Real `json:"specular"`
	Reflected   Real `json:"reflected"`
	Transmitted Real `json:"transmitted"`
	Absorbed    Real `json:"absorbed"`
	Escaped     Real `json:"escaped"`
	Truncated   Real `json:"truncated"`
	// RouletteNet is weight killed by roulette minus weight gained by
	// survivors.
	RouletteNet Real `json:"rouletteNet"`
}

func (b *Balance) Add(o *Balance) {
	b.Specular += o.Specular
	b.Reflected += o.Reflected
	b.Transmitted += o.Transmitted
	b.Absorbed += o.Absorbed
	b.Escaped += o.Escaped
	b.Truncated += o.Truncated
	b.RouletteNet += o.RouletteNet
}

func (b *Balance) Total() Real {
	return b.Specular + b.Reflected + b.Transmitted + b.Absorbed + b.Escaped + b.Truncated + b.RouletteNet
}

func (b Balance) String() string {
	return fmt.Sprintf("specular=%.6g reflected=%.6g transmitted=%.6g absorbed=%.6g escaped=%.6g truncated=%.6g rouletteNet=%.6g total=%.6g",
		b.Specular, b.Reflected, b.Transmitted, b.Absorbed, b.Escaped, b.Truncated, b.RouletteNet, b.Total())
}
