package bridge

import (
	"vpnd/internal/mgmt"
	"vpnd/internal/version"
)

// VersionInfoToWire copies version info field by field.
func VersionInfoToWire(info version.AppVersionInfo) *mgmt.AppVersionInfo {
	return &mgmt.AppVersionInfo{
		Supported:        info.Supported,
		LatestStable:     info.LatestStable,
		LatestBeta:       info.LatestBeta,
		SuggestedUpgrade: encodeOptional(info.SuggestedUpgrade, identity),
	}
}

// VersionInfoFromWire is the inverse of VersionInfoToWire. An empty
// suggested upgrade becomes nil.
func VersionInfoFromWire(msg *mgmt.AppVersionInfo) (version.AppVersionInfo, error) {
	if msg == nil {
		return version.AppVersionInfo{}, fieldError(ErrMissingField, "version_info", nil)
	}
	suggested, err := decodeOptional(msg.SuggestedUpgrade, parseString)
	if err != nil {
		return version.AppVersionInfo{}, err
	}
	return version.AppVersionInfo{
		Supported:        msg.Supported,
		LatestStable:     msg.LatestStable,
		LatestBeta:       msg.LatestBeta,
		SuggestedUpgrade: suggested,
	}, nil
}
