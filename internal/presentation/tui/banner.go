package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"  ____             _            ",
	" |  _ \\ __ _ _ __| | ___ _   _ ",
	" | |_) / _` | '__| |/ _ \\ | | |",
	" |  __/ (_| | |  | |  __/ |_| |",
	" |_|   \\__,_|_|  |_|\\___|\\__, |",
	"                         |___/ ",
}

// One gradient step per banner line, indigo to rose.
var bannerColors = []string{
	"#818cf8", "#a78bfa", "#c084fc", "#e879f9", "#f472b6", "#fb7185",
}

// PrintBanner outputs the ASCII art banner for Parley.
func PrintBanner() {
	p := termenv.ColorProfile()

	fmt.Println()
	for i, line := range bannerLines {
		fmt.Println(termenv.String(line).Foreground(p.Color(bannerColors[i])))
	}
	fmt.Println()
}
