package autopr

import "strings"

const (
	defaultBranchPrefixConstant     = "acp"
	defaultRemoteNameConstant       = "origin"
	defaultMergeMethodConstant      = "merge"
	remoteConfigurationKeySuffix    = ".remote"
	prefixConfigurationKeySuffix    = ".branch_prefix"
	mergeConfigurationKeySuffix     = ".merge_method"
	reviewersConfigurationKeySuffix = ".reviewers"
)

// CommandConfiguration captures configuration values for the pull-request command.
type CommandConfiguration struct {
	RemoteName   string   `mapstructure:"remote"`
	BranchPrefix string   `mapstructure:"branch_prefix"`
	MergeMethod  string   `mapstructure:"merge_method"`
	Reviewers    []string `mapstructure:"reviewers"`
}

// DefaultCommandConfiguration provides baseline configuration values for the pull-request command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		RemoteName:   defaultRemoteNameConstant,
		BranchPrefix: defaultBranchPrefixConstant,
		MergeMethod:  defaultMergeMethodConstant,
		Reviewers:    nil,
	}
}

// DefaultConfigurationValues exposes configuration defaults keyed beneath the supplied prefix.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationKeyPrefix + remoteConfigurationKeySuffix:    defaults.RemoteName,
		configurationKeyPrefix + prefixConfigurationKeySuffix:    defaults.BranchPrefix,
		configurationKeyPrefix + mergeConfigurationKeySuffix:     defaults.MergeMethod,
		configurationKeyPrefix + reviewersConfigurationKeySuffix: defaults.Reviewers,
	}
}

// Sanitize trims configuration values and applies defaults for empty entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration

	sanitized.RemoteName = strings.TrimSpace(configuration.RemoteName)
	if len(sanitized.RemoteName) == 0 {
		sanitized.RemoteName = defaultRemoteNameConstant
	}

	sanitized.BranchPrefix = strings.TrimSpace(configuration.BranchPrefix)
	if len(sanitized.BranchPrefix) == 0 {
		sanitized.BranchPrefix = defaultBranchPrefixConstant
	}

	sanitized.MergeMethod = strings.TrimSpace(configuration.MergeMethod)
	if len(sanitized.MergeMethod) == 0 {
		sanitized.MergeMethod = defaultMergeMethodConstant
	}

	sanitized.Reviewers = sanitizeReviewers(configuration.Reviewers)

	return sanitized
}

func sanitizeReviewers(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for _, candidate := range raw {
		trimmed := strings.TrimSpace(candidate)
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	if len(sanitized) == 0 {
		return nil
	}
	return sanitized
}
