package portal

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/reytechinc/scprs-backend/pkg/logger"
)

// The portal advances a conversation through two hidden markers: an opaque
// session token (ICSID) and a state counter (ICStateNum). Both are rewritten
// on every response and must be replayed verbatim on the next POST.
var (
	tokenPattern    = regexp.MustCompile(`name='ICSID'\s+id='ICSID'\s+value='([^']*)'`)
	statePattern    = regexp.MustCompile(`name='ICStateNum'\s+id='ICStateNum'\s+value='(\d+)'`)
	echoPattern     = regexp.MustCompile(`name='DUMMY_FIELD\$hnewpers\$0'[^>]*value='([^']*)'`)
	markerPattern   = regexp.MustCompile(`ZZ_SCPRS|ICSID`)
	captionPattern  = regexp.MustCompile(`(\d+)\s+to\s+(\d+)\s+of\s+(\d+)`)
	echoedValueAttr = `name='%s'[^>]*value="([^"]*)"`
)

func extractToken(page string) string {
	if m := tokenPattern.FindStringSubmatch(page); m != nil {
		return m[1]
	}
	return ""
}

func extractStateNum(page string) (string, bool) {
	if m := statePattern.FindStringSubmatch(page); m != nil {
		return m[1], true
	}
	return "1", false
}

func pageHasFormMarkers(page string) bool {
	return markerPattern.MatchString(page)
}

// echoedCriteria re-reads the criteria values the server rendered back into
// the results page, so a drill-down POST repeats exactly what the portal
// believes was searched.
func echoedCriteria(page string) map[string]string {
	values := make(map[string]string, len(criteriaFields))
	for _, field := range criteriaFields {
		pattern := regexp.MustCompile(fmt.Sprintf(echoedValueAttr, regexp.QuoteMeta(field)))
		if m := pattern.FindStringSubmatch(page); m != nil {
			values[field] = m[1]
		} else {
			values[field] = ""
		}
	}
	return values
}

// buildForm assembles the POST body for one UI transition: the fixed
// protocol boilerplate, the current token and state counter lifted from the
// source page, the action token, and the caller's field values. The
// server-echoed hidden field is copied forward unmodified; the portal
// silently rejects posts that drop it.
func buildForm(ctx context.Context, logg *logger.Logger, page, token, action string, fields map[string]string) url.Values {
	stateNum, found := extractStateNum(page)
	if !found && logg != nil {
		logg.Warn(ctx, "state counter missing from page, defaulting to 1 (degraded mode)")
	}

	form := url.Values{}
	set := func(k, v string) { form.Set(k, v) }

	set("ICType", "Panel")
	set("ICElementNum", "0")
	set("ICStateNum", stateNum)
	set("ICAction", action)
	set("ICModelCancel", "0")
	set("ICXPos", "0")
	set("ICYPos", "0")
	set("ResponsetoDiffFrame", "-1")
	set("TargetFrameName", "None")
	set("FacetPath", "None")
	set("ICFocus", "")
	set("ICSaveWarningFilter", "0")
	set("ICChanged", "-1")
	set("ICSkipPending", "0")
	set("ICAutoSave", "0")
	set("ICResubmit", "0")
	set("ICSID", token)
	set("ICActionPrompt", "false")
	set("ICBcDomData", "")
	set("ICPanelName", "")
	set("ICFind", "")
	set("ICAddCount", "")
	set("ICAppClsData", "")

	if m := echoPattern.FindStringSubmatch(page); m != nil {
		set(echoFieldName, m[1])
	}

	for k, v := range fields {
		set(k, v)
	}

	return form
}
