// Copyright 2020 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package nbhood

// This file contains various cloud account specific stuff; change this if
// you want to use the cloud functionality on your own site. The values
// can also be overridden in the settings file.

const defaultAwsRegion = "eu-west-2"

// Queue names
const (
	queueSmooth = "nbhoodsmooth"
)

// Storage bucket names
const (
	storageFields = "nbhoodfields"
)
