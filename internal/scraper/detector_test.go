package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockDetectorChallengeTitle(t *testing.T) {
	t.Parallel()
	doc := mustDoc(t, `<html><head><title>Just a moment...</title></head><body></body></html>`)
	reason, blocked := defaultBlockDetector.Blocked(doc)
	require.True(t, blocked)
	require.Contains(t, reason, "just a moment")
}

func TestBlockDetectorChallengeMarkup(t *testing.T) {
	t.Parallel()
	doc := mustDoc(t, `<html><body><div id="cf-browser-verification"></div></body></html>`)
	reason, blocked := defaultBlockDetector.Blocked(doc)
	require.True(t, blocked)
	require.Contains(t, reason, "#cf-browser-verification")
}

func TestBlockDetectorPassesNormalPage(t *testing.T) {
	t.Parallel()
	doc := mustDoc(t, `
		<html><head><title>Bán nhà riêng tại Quận 7</title></head>
		<body><div class="re__card-full">listing</div></body></html>`)
	_, blocked := defaultBlockDetector.Blocked(doc)
	require.False(t, blocked)
}
