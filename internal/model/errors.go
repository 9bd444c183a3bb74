package model

import "errors"

var (
	// ErrUnknownLabel — значение категории отсутствует в энкодере.
	ErrUnknownLabel = errors.New("unknown label")

	// ErrDimensionMismatch — размеры матриц или векторов не согласованы.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrUnsupportedShape — атрибуцию такой формы нельзя разложить по классам.
	ErrUnsupportedShape = errors.New("unsupported attribution shape")

	// ErrInvalidBundle — артефакт модели повреждён или несогласован.
	ErrInvalidBundle = errors.New("invalid model bundle")
)
