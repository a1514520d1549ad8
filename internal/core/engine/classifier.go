package engine

import "github.com/comitanigiacomo/kanso-habits/internal/core/domain"

const (
	strongThreshold = 0.8
	weakThreshold   = 0.6
)

func Classify(rate float64) domain.Classification {
	switch {
	case rate >= strongThreshold:
		return domain.ClassificationStrong
	case rate >= weakThreshold:
		return domain.ClassificationWeak
	}
	return domain.ClassificationBroken
}
