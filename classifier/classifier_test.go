package classifier

import (
	"chat-session/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected domain.DerivedKind
		actor    string
	}{
		{"Private chat request", "Bob has sent you a private chat request.", domain.KindPrivateChatRequest, "Bob"},
		{"Follow", "Alice has followed you.", domain.KindFollow, "Alice"},
		{"Unfollow is not mistaken for follow", "Alice has unfollowed you.", domain.KindUnfollow, "Alice"},
		{"Removed follower with slash", "Clara has removed you from his/her followers list.", domain.KindRemovedFollower, "Clara"},
		{"Commented", "Dan Smith has commented on your post.", domain.KindCommentedPost, "Dan Smith"},
		{"Voted", "Eve has voted your post.", domain.KindVotedPost, "Eve"},
		{"Case and trailing spaces", "BOB HAS SENT YOU A PRIVATE CHAT REQUEST  ", domain.KindPrivateChatRequest, "BOB"},
		{"Suffix not at the end", "Bob has followed you. Say hi!", domain.KindUnknown, ""},
		{"Unrelated text", "Welcome back", domain.KindUnknown, ""},
		{"Empty", "", domain.KindUnknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			kind, actor := Classify(tt.message)
			req.Equal(tt.expected, kind)
			req.Equal(tt.actor, actor)
		})
	}
}

func TestNew_CustomSuffixes(t *testing.T) {
	req := require.New(t)
	c, err := New(map[domain.DerivedKind]string{
		domain.KindPrivateChatRequest: "wants to talk privately",
	})
	req.NoError(err)

	kind, actor := c.Classify("Bob wants to talk privately!")
	req.Equal(domain.KindPrivateChatRequest, kind)
	req.Equal("Bob", actor)

	kind, _ = c.Classify("Bob has sent you a private chat request.")
	req.Equal(domain.KindUnknown, kind)
}
