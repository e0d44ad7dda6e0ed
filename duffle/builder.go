package duffle

import "sort"

// SetArgs renders installation parameters as `--set k=v` token pairs.
// Entries with empty values are dropped. Keys are emitted in sorted
// order so the rendered command is deterministic. Each value stays a
// single argv token no matter what it contains; nothing here ever
// passes through a shell parse.
func SetArgs(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, "--set", k+"="+params[k])
	}
	return args
}

// CredentialArgs renders the `-c <name>` token pair, or nothing when
// no credential set is referenced.
func CredentialArgs(credentialSet string) []string {
	if credentialSet == "" {
		return nil
	}
	return []string{"-c", credentialSet}
}

// FileArgs renders file paths one token per path, in caller order.
// Embedded spaces survive because paths never re-enter a shell.
func FileArgs(paths []string) []string {
	args := make([]string, 0, len(paths))
	args = append(args, paths...)
	return args
}
