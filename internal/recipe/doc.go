// Package recipe loads package recipes into immutable descriptors.
//
// A recipe is a directory holding a meta.yaml build-metadata document. The
// loader renders it as a Jinja template with gonja, drops lines whose
// "# [selector]" comment is false for the target platform, decodes the result
// with gopkg.in/yaml.v3 and reduces every requirement to its bare package name
// for graph purposes.
//
// Problems confined to one recipe are reported as *ParseError so the caller
// can skip that recipe and keep going; anything else is a system error.
package recipe
