// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

package eval

import "encoding/json"

func jsonArray(vals ...string) ([]byte, error) {
	arr := make([]any, len(vals))
	for i, v := range vals {
		arr[i] = v
	}
	return json.Marshal(arr)
}
