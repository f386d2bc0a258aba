package autopr_test

import (
	"testing"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/require"

	"github.com/vbvictor/acp/internal/autopr"
)

func TestDefaultCommandConfiguration(testInstance *testing.T) {
	configuration := autopr.DefaultCommandConfiguration()

	require.Equal(testInstance, "origin", configuration.RemoteName)
	require.Equal(testInstance, "acp", configuration.BranchPrefix)
	require.Equal(testInstance, "merge", configuration.MergeMethod)
	require.Nil(testInstance, configuration.Reviewers)
}

func TestDefaultConfigurationValues(testInstance *testing.T) {
	values := autopr.DefaultConfigurationValues("tools.pr")

	require.Equal(testInstance, "origin", values["tools.pr.remote"])
	require.Equal(testInstance, "acp", values["tools.pr.branch_prefix"])
	require.Equal(testInstance, "merge", values["tools.pr.merge_method"])
	require.Contains(testInstance, values, "tools.pr.reviewers")
}

func TestCommandConfigurationDecodesFromMap(testInstance *testing.T) {
	var configuration autopr.CommandConfiguration
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "mapstructure", Result: &configuration})
	require.NoError(testInstance, decoderError)

	decodeError := decoder.Decode(map[string]any{
		"remote":        "upstream",
		"branch_prefix": "feature",
		"merge_method":  "rebase",
		"reviewers":     []string{"alice"},
	})
	require.NoError(testInstance, decodeError)

	require.Equal(testInstance, "upstream", configuration.RemoteName)
	require.Equal(testInstance, "feature", configuration.BranchPrefix)
	require.Equal(testInstance, "rebase", configuration.MergeMethod)
	require.Equal(testInstance, []string{"alice"}, configuration.Reviewers)
}

func TestSanitize(testInstance *testing.T) {
	testCases := []struct {
		name     string
		input    autopr.CommandConfiguration
		expected autopr.CommandConfiguration
	}{
		{
			name:     "empty_values_receive_defaults",
			input:    autopr.CommandConfiguration{},
			expected: autopr.DefaultCommandConfiguration(),
		},
		{
			name: "whitespace_is_trimmed",
			input: autopr.CommandConfiguration{
				RemoteName:   " upstream ",
				BranchPrefix: " feature ",
				MergeMethod:  " squash ",
				Reviewers:    []string{" alice ", "", "bob"},
			},
			expected: autopr.CommandConfiguration{
				RemoteName:   "upstream",
				BranchPrefix: "feature",
				MergeMethod:  "squash",
				Reviewers:    []string{"alice", "bob"},
			},
		},
		{
			name: "blank_reviewers_collapse_to_nil",
			input: autopr.CommandConfiguration{
				RemoteName:   "origin",
				BranchPrefix: "acp",
				MergeMethod:  "merge",
				Reviewers:    []string{"  ", ""},
			},
			expected: autopr.DefaultCommandConfiguration(),
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			require.Equal(subTest, testCase.expected, testCase.input.Sanitize())
		})
	}
}
