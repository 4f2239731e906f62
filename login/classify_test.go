package login

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyOrdering(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want State
	}{
		{
			name: "feed url is success",
			snap: Snapshot{Location: "https://www.linkedin.com/feed/"},
			want: Success,
		},
		{
			name: "profile url is success",
			snap: Snapshot{Location: "https://www.linkedin.com/in/someone/"},
			want: Success,
		},
		{
			name: "checkpoint marker",
			snap: Snapshot{Location: "https://www.linkedin.com/checkpoint/challenge/abc"},
			want: CheckpointRequired,
		},
		{
			name: "challenge marker",
			snap: Snapshot{Location: "https://www.linkedin.com/uas/challenge?x=1"},
			want: CaptchaRequired,
		},
		{
			name: "two step verification marker",
			snap: Snapshot{Location: "https://www.linkedin.com/uas/two-step-verification"},
			want: TwoFactorRequired,
		},
		{
			name: "generic verification marker",
			snap: Snapshot{Location: "https://www.linkedin.com/uas/email-verification"},
			want: VerificationRequired,
		},
		{
			name: "field error element",
			snap: Snapshot{
				Location:  "https://www.linkedin.com/somewhere",
				ErrorText: "That's not the right password",
			},
			want: InvalidCredentials,
		},
		{
			name: "still on login with incorrect in body",
			snap: Snapshot{
				Location:    "https://www.linkedin.com/login",
				BodyExcerpt: "The email or password you entered is Incorrect.",
			},
			want: InvalidCredentials,
		},
		{
			name: "still on login with recognize in body",
			snap: Snapshot{
				Location:    "https://www.linkedin.com/login",
				BodyExcerpt: "We don't recognize that email.",
			},
			want: InvalidCredentials,
		},
		{
			name: "still on login without hints",
			snap: Snapshot{Location: "https://www.linkedin.com/login"},
			want: InvalidCredentials,
		},
		{
			name: "unknown destination",
			snap: Snapshot{Location: "https://www.linkedin.com/something-else"},
			want: UnknownFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.snap).State)
		})
	}
}

// An explicit checkpoint marker must outrank the weaker still-on-login
// inference when both signals are present.
func TestClassifyCheckpointBeatsLoginInference(t *testing.T) {
	snap := Snapshot{
		Location:    "https://www.linkedin.com/checkpoint/lg/login-submit",
		BodyExcerpt: "something looks wrong here",
	}
	assert.Equal(t, CheckpointRequired, Classify(snap).State)
}

func TestClassifyChallengeBeatsErrorElement(t *testing.T) {
	snap := Snapshot{
		Location:  "https://www.linkedin.com/challenge/verify",
		ErrorText: "Please complete this security check",
	}
	assert.Equal(t, CaptchaRequired, Classify(snap).State)
}

func TestClassifyErrorElementCarriesText(t *testing.T) {
	snap := Snapshot{
		Location:  "https://www.linkedin.com/unknown",
		ErrorText: "Wrong email or password, try again",
	}
	outcome := Classify(snap)
	assert.Equal(t, InvalidCredentials, outcome.State)
	assert.Equal(t, "Wrong email or password, try again", outcome.Detail)
}

func TestClassifyUnknownCarriesRawLocation(t *testing.T) {
	outcome := Classify(Snapshot{Location: "https://www.linkedin.com/odd-page"})
	assert.Equal(t, UnknownFailure, outcome.State)
	assert.Equal(t, "https://www.linkedin.com/odd-page", outcome.Detail)
}

func TestNeedsVerification(t *testing.T) {
	assert.True(t, Outcome{State: CheckpointRequired}.NeedsVerification())
	assert.True(t, Outcome{State: TwoFactorRequired}.NeedsVerification())
	assert.True(t, Outcome{State: VerificationRequired}.NeedsVerification())
	assert.False(t, Outcome{State: CaptchaRequired}.NeedsVerification())
	assert.False(t, Outcome{State: InvalidCredentials}.NeedsVerification())
	assert.False(t, Outcome{State: Success}.NeedsVerification())
}
