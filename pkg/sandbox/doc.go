// Package sandbox prepares untrusted programs for execution under a policy.
//
// A Sandbox owns a policy store, the sandbox options, an error reporter and
// an optional validation cache. Prepare runs the full pipeline over a parsed
// program:
//
//  1. Trusted code added with Prepend and Append is scanned and its
//     declarations are whitelisted.
//  2. The program's own declarations are whitelisted, gated by the options.
//  3. The policy identity is computed from the options, the store contents
//     and the sandbox ID.
//  4. The cache is consulted with the identity and the source text.
//  5. On a miss the program is validated and rewritten, printed and stored.
//
// # Basic Usage
//
//	sb, err := sandbox.New(sandbox.Config{Parser: &ast.DocumentParser{Format: ast.FormatYAML}})
//	if err != nil {
//		return err
//	}
//	_ = sb.Store().AllowList(policy.Function, []string{"strlen", "str_repeat"})
//
//	prepared, err := sb.PrepareSource(ctx, document)
//	if err != nil {
//		log.Error("program rejected", "error", err)
//	}
//	fmt.Println(prepared.Code)
//
// The rewritten program calls back into the sandbox through its runtime;
// see package hooks.
//
// # Thread Safety
//
// Prepare is serialized per Sandbox because validation may register
// namespace and alias definitions in the store. No lock is held once it
// returns. A cache may be shared by many sandboxes.
package sandbox
