package main

import (
	"fmt"
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// Each byte is carried as a private-use rune so the diff works on whole
// bytes rather than on hex digits.
const byteRuneBase = 0xE000

func byteRunes(b []byte) []rune {
	out := make([]rune, len(b))
	for i, v := range b {
		out[i] = byteRuneBase + rune(v)
	}
	return out
}

func runeHex(text string) string {
	parts := make([]string, 0, len(text)/3)
	for _, r := range text {
		parts = append(parts, fmt.Sprintf("%02X", byte(r-byteRuneBase)))
	}
	return strings.Join(parts, " ")
}

// hexDiff renders the change from one byte string to another as hex with deletions in
// [-..-] and insertions in {+..+}.
func hexDiff(from, to []byte) string {
	diffCfg := diffpatch.New()
	diffs := diffCfg.DiffMainRunes(byteRunes(from), byteRunes(to), false)

	parts := make([]string, 0, len(diffs))
	for _, d := range diffs {
		text := runeHex(d.Text)
		switch d.Type {
		case diffpatch.DiffDelete:
			parts = append(parts, badColor.Sprint("[-"+text+"-]"))
		case diffpatch.DiffInsert:
			parts = append(parts, okColor.Sprint("{+"+text+"+}"))
		case diffpatch.DiffEqual:
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
