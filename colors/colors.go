package colors

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
)

var (
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
)

// Status colors 4xx and 5xx codes red and everything else green.
func Status(code int) string {
	if code >= http.StatusBadRequest {
		return Red(code)
	}
	return Green(code)
}

func Duration(d time.Duration) string {
	return Yellow(fmt.Sprintf("[%v]", d))
}
