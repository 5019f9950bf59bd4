// Package pricing quotes a translation by word count and speed.
package pricing

import (
	"errors"
	"fmt"
)

const Currency = "USD"

var ErrNegativeWordCount = errors.New("word count must not be negative")

type band struct {
	upTo     int // exclusive; 0 means unbounded
	standard int // cents
	other    int
}

var bands = []band{
	{upTo: 100_000, standard: 89, other: 99},
	{upTo: 200_000, standard: 169, other: 189},
	{upTo: 300_000, standard: 289, other: 329},
	{upTo: 400_000, standard: 349, other: 419},
	{upTo: 500_000, standard: 419, other: 489},
	{upTo: 600_000, standard: 509, other: 589},
	{upTo: 0, standard: 839, other: 999},
}

// Cents returns the price in cents. "standard" speed uses the cheaper column.
func Cents(wordCount int, speed string) (int, error) {
	if wordCount < 0 {
		return 0, ErrNegativeWordCount
	}
	for _, b := range bands {
		if b.upTo == 0 || wordCount < b.upTo {
			if speed == "standard" {
				return b.standard, nil
			}
			return b.other, nil
		}
	}
	return 0, fmt.Errorf("no price band for %d words", wordCount)
}

func Format(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
