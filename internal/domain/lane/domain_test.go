package lane

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLane_Links(t *testing.T) {
	l := Lane{
		ID:        "nightly:2021.04-branch",
		Ref:       "2021.04-branch",
		Kind:      KindNightly,
		CommitURL: "https://github.com/RIOT-OS/RIOT/commit/{commit}",
		ResultURL: "https://ci.riot-os.org/details/{branch}/{commit}",
	}
	assert.Equal(t, "https://github.com/RIOT-OS/RIOT/commit/abc", l.CommitLink("abc"))
	assert.Equal(t, "https://ci.riot-os.org/details/2021.04-branch/abc", l.ResultLink("abc"))
	assert.Equal(t, "2021.04-branch", l.Expand("{lane}", ""))

	l.ResultURL = ""
	assert.Empty(t, l.ResultLink("abc"))
}
