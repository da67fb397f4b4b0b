package browser

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-rod/rod/lib/proto"
)

const approvalSettleWait = 500 * time.Millisecond

// approvalWords are the labels agents put on consent buttons before tool
// use. The conversation stalls until one is pressed, so the driver
// presses them itself while waiting for a response.
var approvalWords = []string{
	"accept", "confirm", "approve", "yes", "ok", "allow",
	"run", "execute", "continue",
	"允许", "确认", "接受",
}

// ariaApprovalWords are matched as substrings of aria-label, which tends
// to be wordier than the visible caption.
var ariaApprovalWords = []string{"accept", "confirm", "approve"}

// clickApprovals presses the first visible enabled button that reads like
// a consent prompt. Returns whether one was pressed.
func (d *Driver) clickApprovals() bool {
	if d.page == nil {
		return false
	}
	els, err := d.page.Elements("button")
	if err != nil {
		return false
	}
	for _, el := range els {
		if !visible(el) || !enabled(el) {
			continue
		}
		label, err := el.Text()
		if err != nil {
			continue
		}
		var aria string
		if v, err := el.Attribute("aria-label"); err == nil && v != nil {
			aria = *v
		}
		if !approvalLabel(label, aria) {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			d.logger.Debug().Err(err).Msg("approval click failed")
			continue
		}
		d.logger.Info().Str("label", strings.TrimSpace(label)).Msg("pressed approval button")
		time.Sleep(approvalSettleWait)
		return true
	}
	return false
}

// approvalLabel reports whether a button caption or aria-label marks a
// consent control. Captions match a word exactly or as a leading word
// ("Continue generating"), never as a bare substring, so "Revoke" does
// not trip on "ok" and "Disallow" does not trip on "allow". Words without
// ASCII letters match as a plain prefix since their scripts do not space
// out words.
func approvalLabel(caption, aria string) bool {
	t := strings.ToLower(strings.TrimSpace(caption))
	if t != "" {
		for _, w := range approvalWords {
			if t == w || strings.HasPrefix(t, w+" ") || (!asciiWord(w) && strings.HasPrefix(t, w)) {
				return true
			}
		}
	}
	a := strings.ToLower(aria)
	if a == "" {
		return false
	}
	for _, w := range ariaApprovalWords {
		if strings.Contains(a, w) {
			return true
		}
	}
	return false
}

func asciiWord(s string) bool {
	return utf8.RuneCountInString(s) == len(s)
}
