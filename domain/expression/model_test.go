package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusActive.Terminal())
	assert.True(t, StatusInactive.Terminal())
	assert.True(t, StatusBroken.Terminal())
	assert.False(t, StatusNone.Terminal(), "silence is not a status")
}

func TestSameClass(t *testing.T) {
	base := &Expression{Speaker: 1, ConditionLabel: "⊤", Action: "publish:x"}

	tests := []struct {
		name  string
		other *Expression
		want  bool
	}{
		{"identical triple", &Expression{Speaker: 1, ConditionLabel: "⊤", Action: "publish:x"}, true},
		{"different speaker", &Expression{Speaker: 2, ConditionLabel: "⊤", Action: "publish:x"}, false},
		{"different label", &Expression{Speaker: 1, ConditionLabel: "⊥", Action: "publish:x"}, false},
		{"different action", &Expression{Speaker: 1, ConditionLabel: "⊤", Action: "publish:y"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.SameClass(tt.other))
		})
	}
}
