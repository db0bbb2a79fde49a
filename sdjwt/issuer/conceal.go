/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuer

import (
	"crypto"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sort"

	"github.com/samber/lo"

	"github.com/trustbloc/sd-jwt-go/jsonpointer"
	"github.com/trustbloc/sd-jwt-go/sdjwt/common"
	jsonutil "github.com/trustbloc/sd-jwt-go/util/json"
)

const (
	defaultSaltSize  = 128 / 8
	decoyInputSize   = 32
	maxDecoyAttempts = 8
)

// Concealed is the result of the concealment of a claim set.
type Concealed struct {
	// Claims is the redacted claim set, including _sd_alg.
	Claims map[string]interface{}
	// Disclosures holds one disclosure per concealed location. Decoys have none.
	Disclosures *common.DisclosureList
	// Paths lists the concealed locations.
	Paths []jsonpointer.Pointer
	// Unresolved lists the policy targets which did not address a value.
	Unresolved []jsonpointer.Pointer
}

// Conceal replaces the claims selected by the policy with digests and returns the redacted
// claims together with the disclosures revealing them. The input is not modified.
//
// Concealed object members are removed and their digests added to the _sd array of the object.
// Concealed array elements are replaced with {"...": digest}. A target nested in another target
// is concealed first, so the outer disclosure carries the digest of the inner one.
//
// Options other than the hash algorithm, decoys, random source, salt size and strict paths
// are ignored.
func Conceal(claims map[string]interface{}, policy Policy, opts ...NewOpt) (*Concealed, error) {
	nOpts := defaultOpts()

	for _, opt := range opts {
		opt(nOpts)
	}

	return conceal(claims, policy, nOpts)
}

func conceal(claims map[string]interface{}, policy Policy, nOpts *newOpts) (*Concealed, error) {
	if jsonutil.KeyExistsInMap(common.SDKey, claims) {
		return nil, fmt.Errorf("%w: key '%s' cannot be present in the claims", common.ErrMalformedInput, common.SDKey)
	}

	if _, err := common.GetCryptoHash(common.HashName(nOpts.HashAlg)); err != nil {
		return nil, err
	}

	tree, err := jsonutil.Normalize(claims)
	if err != nil {
		return nil, fmt.Errorf("normalize claims: %w", err)
	}

	c := &concealer{
		opts:   nOpts,
		result: &Concealed{Disclosures: common.NewDisclosureList(nOpts.HashAlg)},
		root:   tree.(map[string]interface{}),
	}

	targets := policy.Targets(c.root)

	if err = c.run(targets); err != nil {
		return nil, err
	}

	if err = c.addDecoys(); err != nil {
		return nil, err
	}

	c.root[common.SDAlgorithmKey] = common.HashName(nOpts.HashAlg)
	c.result.Claims = c.root

	return c.result, nil
}

type concealer struct {
	opts   *newOpts
	result *Concealed
	root   map[string]interface{}
}

// run conceals targets grouped by parent, deepest parents first.
func (c *concealer) run(targets []jsonpointer.Pointer) error {
	groups := lo.GroupBy(targets, func(ptr jsonpointer.Pointer) string {
		return ptr.Parent().String()
	})

	parents := lo.Keys(groups)
	sort.Slice(parents, func(i, j int) bool {
		di, dj := groups[parents[i]][0].Parent().Len(), groups[parents[j]][0].Parent().Len()
		if di != dj {
			return di > dj
		}

		return parents[i] < parents[j]
	})

	for _, parent := range parents {
		if err := c.concealGroup(groups[parent]); err != nil {
			return err
		}
	}

	return nil
}

func (c *concealer) concealGroup(targets []jsonpointer.Pointer) error {
	var container interface{} = c.root

	parent := targets[0].Parent()
	if !parent.IsRoot() {
		var err error

		container, err = parent.Resolve(c.root)
		if err != nil {
			return c.unresolved(targets...)
		}
	}

	switch val := container.(type) {
	case map[string]interface{}:
		return c.concealMembers(val, targets)
	case []interface{}:
		return c.concealElements(val, targets)
	default:
		return c.unresolved(targets...)
	}
}

func (c *concealer) concealMembers(obj map[string]interface{}, targets []jsonpointer.Pointer) error {
	sd, err := jsonutil.StringArray(obj[common.SDKey])
	if err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrMalformedInput, common.SDKey, err)
	}

	for _, target := range targets {
		digest, ok, err := c.concealMember(obj, target)
		if err != nil {
			return err
		}

		if ok {
			sd = append(sd, digest)
		}
	}

	if len(sd) == 0 {
		return nil
	}

	if err = shuffle(c.opts.random, sd); err != nil {
		return err
	}

	obj[common.SDKey] = lo.ToAnySlice(sd)

	return nil
}

func (c *concealer) concealMember(obj map[string]interface{}, target jsonpointer.Pointer) (string, bool, error) {
	last, ok := target.Last()
	if !ok {
		return "", false, c.unresolved(target)
	}

	name := last.Key()

	value, exists := obj[name]
	if !exists || (target.Len() == 1 && name == common.SDAlgorithmKey) {
		return "", false, c.unresolved(target)
	}

	salt, err := c.salt()
	if err != nil {
		return "", false, err
	}

	d, err := common.NewObjectDisclosure(salt, name, value)
	if err != nil {
		return "", false, fmt.Errorf("create disclosure for %s: %w", target, err)
	}

	digest, err := c.result.Disclosures.Add(d)
	if err != nil {
		return "", false, fmt.Errorf("add disclosure for %s: %w", target, err)
	}

	delete(obj, name)

	c.result.Paths = append(c.result.Paths, target)

	return digest, true, nil
}

func (c *concealer) concealElements(arr []interface{}, targets []jsonpointer.Pointer) error {
	for _, target := range targets {
		last, _ := target.Last()

		i, isIndex := last.Index()
		if !isIndex || i >= len(arr) {
			if err := c.unresolved(target); err != nil {
				return err
			}

			continue
		}

		salt, err := c.salt()
		if err != nil {
			return err
		}

		d, err := common.NewArrayElementDisclosure(salt, arr[i])
		if err != nil {
			return fmt.Errorf("create disclosure for %s: %w", target, err)
		}

		digest, err := c.result.Disclosures.Add(d)
		if err != nil {
			return fmt.Errorf("add disclosure for %s: %w", target, err)
		}

		arr[i] = map[string]interface{}{common.ArrayElementDigestKey: digest}
		c.result.Paths = append(c.result.Paths, target)
	}

	return nil
}

func (c *concealer) unresolved(targets ...jsonpointer.Pointer) error {
	if c.opts.strictPaths {
		return fmt.Errorf("%w: %s", common.ErrPathNotFound, targets[0])
	}

	for _, target := range targets {
		logger.Debugf("conceal target %s does not address a value, skipped", target)
	}

	c.result.Unresolved = append(c.result.Unresolved, targets...)

	return nil
}

func (c *concealer) salt() ([]byte, error) {
	salt := make([]byte, c.opts.saltSize)

	if _, err := io.ReadFull(c.opts.random, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	return salt, nil
}

// addDecoys appends decoy digests to the top-level _sd array and shuffles it.
func (c *concealer) addDecoys() error {
	if c.opts.decoys <= 0 {
		return nil
	}

	sd, err := jsonutil.StringArray(c.root[common.SDKey])
	if err != nil {
		return fmt.Errorf("%w: %s: %w", common.ErrMalformedInput, common.SDKey, err)
	}

	used := lo.SliceToMap(sd, func(digest string) (string, struct{}) {
		return digest, struct{}{}
	})

	for _, digest := range c.result.Disclosures.Digests() {
		used[digest] = struct{}{}
	}

	for i := 0; i < c.opts.decoys; i++ {
		digest, err := c.decoy(used)
		if err != nil {
			return err
		}

		used[digest] = struct{}{}
		sd = append(sd, digest)
	}

	if err = shuffle(c.opts.random, sd); err != nil {
		return err
	}

	c.root[common.SDKey] = lo.ToAnySlice(sd)

	return nil
}

func (c *concealer) decoy(used map[string]struct{}) (string, error) {
	input := make([]byte, decoyInputSize)

	for attempt := 0; attempt < maxDecoyAttempts; attempt++ {
		if _, err := io.ReadFull(c.opts.random, input); err != nil {
			return "", fmt.Errorf("generate decoy: %w", err)
		}

		digest, err := common.GetHash(c.opts.HashAlg, string(input))
		if err != nil {
			return "", err
		}

		if _, exists := used[digest]; !exists {
			return digest, nil
		}
	}

	return "", fmt.Errorf("generate decoy: no unique digest after %d attempts", maxDecoyAttempts)
}

// shuffle is a Fisher-Yates shuffle driven by r.
func shuffle(r io.Reader, digests []string) error {
	for i := len(digests) - 1; i > 0; i-- {
		j, err := rand.Int(r, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("shuffle digests: %w", err)
		}

		digests[i], digests[j.Int64()] = digests[j.Int64()], digests[i]
	}

	return nil
}

func defaultOpts() *newOpts {
	return &newOpts{
		HashAlg:  crypto.SHA256,
		saltSize: defaultSaltSize,
		random:   rand.Reader,
	}
}
