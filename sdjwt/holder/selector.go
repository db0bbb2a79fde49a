/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package holder

import (
	"github.com/trustbloc/sd-jwt-go/jsonpointer"
	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
)

// SelectDisclosures returns the disclosures of the SD-JWT matching the given encoded disclosures.
// Disclosures which are not part of the SD-JWT are dropped.
func SelectDisclosures(token *common.SDJWT, disclosures []string) (*common.DisclosureList, error) {
	digests := make([]string, 0, len(disclosures))

	for _, encoded := range disclosures {
		digest, err := common.GetHash(token.Hash(), encoded)
		if err != nil {
			return nil, err
		}

		if !token.Disclosures.Contains(digest) {
			logger.Debugf("disclosure %s is not part of the SD-JWT, dropped", digest)

			continue
		}

		digests = append(digests, digest)
	}

	return token.Disclosures.Subset(digests), nil
}

// SelectByPaths returns the disclosures revealing the claims at the given locations of the reconstructed
// claims. The disclosures of concealed ancestors are included, so the claims can be reconstructed
// by the Verifier. Locations which are not selectively disclosable are ignored.
func SelectByPaths(token *common.SDJWT, paths ...jsonpointer.Pointer) (*common.DisclosureList, error) {
	index, err := indexDisclosures(token)
	if err != nil {
		return nil, err
	}

	var digests []string

	for _, path := range paths {
		found, ok := index.lookup(path)
		if !ok {
			logger.Debugf("%s is not selectively disclosable", path)

			continue
		}

		digests = append(digests, found...)
	}

	return token.Disclosures.Subset(digests), nil
}
