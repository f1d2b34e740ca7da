package dispatch

import "encoding/json"

// account is the JSON record stored under a username key in the clients
// ring, per spec §4.6.
type account struct {
	PwHash string   `json:"pwhash"`
	Files  []string `json:"files"`
}

func encodeAccount(a account) ([]byte, error) {
	return json.Marshal(a)
}

func decodeAccount(b []byte) (account, error) {
	var a account
	err := json.Unmarshal(b, &a)
	return a, err
}

func containsFile(files []string, sysPath string) bool {
	for _, f := range files {
		if f == sysPath {
			return true
		}
	}
	return false
}

func removeFile(files []string, sysPath string) []string {
	out := files[:0:0]
	for _, f := range files {
		if f != sysPath {
			out = append(out, f)
		}
	}
	return out
}
