/*************************************************************************
 * Copyright 2026 Sentryd Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package config

import "os/user"

// userLookup/groupLookup resolve a configured name to its numeric id.
// os/user is the standard way to do this; nothing in the wider corpus
// wraps NSS/passwd lookups, and this is exactly the kind of system-call
// boundary the standard library already covers correctly.
func userLookup(name string) (string, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return "", err
	}
	return u.Uid, nil
}

func groupLookup(name string) (string, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return "", err
	}
	return g.Gid, nil
}
