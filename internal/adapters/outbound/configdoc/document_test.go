package configdoc_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migrakit/migrakit/internal/adapters/outbound/configdoc"
	"github.com/migrakit/migrakit/internal/domain"
)

const mainTS = `import type { StorybookConfig } from '@storybook/react-vite';

// keep this comment
const config: StorybookConfig = {
  stories: ['../src/**/*.stories.tsx'],
  addons: ['@storybook/addon-essentials'],
  docs: {
    autodocs: true,
  },
};

export default config;
`

const previewTS = `import type { Preview } from '@storybook/react';

const preview: Preview = {
  tags: ['existing-tag'],
};

export default preview;
`

func parse(t *testing.T, name, src string) *configdoc.Document {
	t.Helper()
	doc, err := configdoc.Parse(name, []byte(src))
	require.NoError(t, err)
	return doc
}

func TestRoundTrip_Unmodified(t *testing.T) {
	sources := map[string]string{
		"main.ts":      mainTS,
		"preview.ts":   previewTS,
		"main.js":      "export default {\n\tstories: [\"../src/**/*.mdx\"], // trailing\n\taddons: [],\n}\n",
		"main.mjs":     "const config = {\n  framework: '@storybook/vue3-vite',\n};\nexport default config;\n",
		"preview.tsx":  "export const parameters = { layout: 'centered' };\nexport const decorators = [(Story) => <Story />];\n",
		"satisfies.ts": "export default {\n  stories: [],\n} satisfies StorybookConfig;\n",
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			doc := parse(t, name, src)
			assert.Equal(t, src, string(doc.Serialize()))
		})
	}
}

func TestGetField_ResolvesDefaultExportAlias(t *testing.T) {
	doc := parse(t, "main.ts", mainTS)

	v, ok := doc.GetField([]string{"docs", "autodocs"})
	require.True(t, ok)
	assert.Equal(t, true, v)

	addons, ok := doc.GetField([]string{"addons"})
	require.True(t, ok)
	assert.Equal(t, []any{"@storybook/addon-essentials"}, addons)

	_, ok = doc.GetField([]string{"docs", "missing"})
	assert.False(t, ok)
}

func TestGetField_ResolvesFieldAlias(t *testing.T) {
	src := "const docsConfig = { autodocs: 'tag' };\nexport default { docs: docsConfig };\n"
	doc := parse(t, "main.js", src)

	v, ok := doc.GetField([]string{"docs", "autodocs"})
	require.True(t, ok)
	assert.Equal(t, "tag", v)
}

func TestGetField_HelperCallAndSatisfies(t *testing.T) {
	doc := parse(t, "main.ts", "export default defineMain({ framework: { name: '@storybook/react-vite' } });\n")
	v, ok := doc.GetField([]string{"framework", "name"})
	require.True(t, ok)
	assert.Equal(t, "@storybook/react-vite", v)

	doc = parse(t, "main.ts", "export default { stories: [] } satisfies StorybookConfig;\n")
	v, ok = doc.GetField([]string{"stories"})
	require.True(t, ok)
	assert.Equal(t, []any{}, v)
}

func TestGetField_NonLiteralIsExpression(t *testing.T) {
	doc := parse(t, "main.js", "export default { framework: getFramework() };\n")
	v, ok := doc.GetField([]string{"framework"})
	require.True(t, ok)
	assert.Equal(t, domain.ConfigExpression{Source: "getFramework()"}, v)
}

func TestRemoveField_RemovesEmptiedParent(t *testing.T) {
	doc := parse(t, "main.ts", mainTS)
	require.NoError(t, doc.RemoveField([]string{"docs", "autodocs"}))

	want := `import type { StorybookConfig } from '@storybook/react-vite';

// keep this comment
const config: StorybookConfig = {
  stories: ['../src/**/*.stories.tsx'],
  addons: ['@storybook/addon-essentials'],
};

export default config;
`
	assert.Equal(t, want, string(doc.Serialize()))
	_, ok := doc.GetField([]string{"docs"})
	assert.False(t, ok)
}

func TestRemoveField_KeepsNonEmptyParent(t *testing.T) {
	src := "export default {\n  docs: {\n    autodocs: 'tag',\n    defaultName: 'Docs',\n  },\n};\n"
	doc := parse(t, "main.js", src)
	require.NoError(t, doc.RemoveField([]string{"docs", "autodocs"}))

	assert.Equal(t, "export default {\n  docs: {\n    defaultName: 'Docs',\n  },\n};\n", string(doc.Serialize()))
}

func TestRemoveField_InlineObject(t *testing.T) {
	doc := parse(t, "main.js", "export default { a: 1, b: 2, c: 3 };\n")
	require.NoError(t, doc.RemoveField([]string{"b"}))
	assert.Equal(t, "export default { a: 1, c: 3 };\n", string(doc.Serialize()))

	require.NoError(t, doc.RemoveField([]string{"c"}))
	assert.Equal(t, "export default { a: 1 };\n", string(doc.Serialize()))
}

func TestRemoveField_MissingIsNoop(t *testing.T) {
	doc := parse(t, "main.ts", mainTS)
	require.NoError(t, doc.RemoveField([]string{"nope", "deeper"}))
	assert.Equal(t, mainTS, string(doc.Serialize()))
}

func TestAppendToArrayField_PreservesExistingEntries(t *testing.T) {
	doc := parse(t, "preview.ts", previewTS)
	require.NoError(t, doc.AppendToArrayField([]string{"tags"}, "autodocs"))

	v, ok := doc.GetField([]string{"tags"})
	require.True(t, ok)
	assert.Equal(t, []any{"existing-tag", "autodocs"}, v)
	assert.Contains(t, string(doc.Serialize()), "tags: ['existing-tag', 'autodocs'],")
}

func TestAppendToArrayField_MultilineWithObjects(t *testing.T) {
	src := "export default {\n  addons: [\n    '@storybook/addon-links',\n    { name: '@storybook/addon-docs', options: {} },\n  ],\n};\n"
	doc := parse(t, "main.js", src)
	require.NoError(t, doc.AppendToArrayField([]string{"addons"}, "@storybook/addon-a11y"))

	want := "export default {\n  addons: [\n    '@storybook/addon-links',\n    { name: '@storybook/addon-docs', options: {} },\n    '@storybook/addon-a11y',\n  ],\n};\n"
	assert.Equal(t, want, string(doc.Serialize()))
}

func TestAppendToArrayField_CreatesMissingArray(t *testing.T) {
	doc := parse(t, "preview.ts", "const preview = {\n  parameters: {},\n};\nexport default preview;\n")
	require.NoError(t, doc.AppendToArrayField([]string{"tags"}, "autodocs"))
	assert.Equal(t, "const preview = {\n  parameters: {},\n  tags: ['autodocs'],\n};\nexport default preview;\n", string(doc.Serialize()))
}

func TestAppendToArrayField_NamedExports(t *testing.T) {
	doc := parse(t, "preview.js", "export const parameters = {};\n")
	require.NoError(t, doc.AppendToArrayField([]string{"tags"}, "autodocs"))
	assert.Equal(t, "export const parameters = {};\n\nexport const tags = ['autodocs'];\n", string(doc.Serialize()))

	require.NoError(t, doc.AppendToArrayField([]string{"tags"}, "test"))
	v, _ := doc.GetField([]string{"tags"})
	assert.Equal(t, []any{"autodocs", "test"}, v)
}

func TestAppendToArrayField_NotAnArray(t *testing.T) {
	doc := parse(t, "main.js", "export default { addons: 'x' };\n")
	err := doc.AppendToArrayField([]string{"addons"}, "y")
	assert.ErrorIs(t, err, domain.ErrNotAnArray)
}

func TestSetField_CreatesIntermediateObjects(t *testing.T) {
	doc := parse(t, "main.js", "export default {\n  stories: [],\n};\n")
	require.NoError(t, doc.SetField([]string{"docs", "defaultName"}, "Documentation"))
	assert.Equal(t, "export default {\n  stories: [],\n  docs: { defaultName: 'Documentation' },\n};\n", string(doc.Serialize()))

	require.NoError(t, doc.SetField([]string{"docs", "defaultName"}, "Docs"))
	v, _ := doc.GetField([]string{"docs", "defaultName"})
	assert.Equal(t, "Docs", v)
}

func TestSetField_FollowsQuoteStyle(t *testing.T) {
	doc := parse(t, "main.js", "export default { framework: \"@storybook/html-vite\" }\n")
	require.NoError(t, doc.SetField([]string{"framework"}, "@storybook/react-vite"))
	assert.Equal(t, "export default { framework: \"@storybook/react-vite\" }\n", string(doc.Serialize()))
}

func TestSetField_EmptyObject(t *testing.T) {
	doc := parse(t, "main.js", "export default {};\n")
	require.NoError(t, doc.SetField([]string{"stories"}, []string{"../src"}))
	assert.Equal(t, "export default { stories: ['../src'] };\n", string(doc.Serialize()))
}

func TestRemoveFromArrayField_StringAndObjectEntries(t *testing.T) {
	src := "export default {\n  addons: [\n    '@storybook/addon-essentials',\n    '@storybook/addon-interactions',\n    { name: '@storybook/addon-interactions' },\n  ],\n};\n"
	doc := parse(t, "main.js", src)

	n, err := doc.RemoveFromArrayField([]string{"addons"}, func(v any) bool {
		switch e := v.(type) {
		case string:
			return e == "@storybook/addon-interactions"
		case map[string]any:
			return e["name"] == "@storybook/addon-interactions"
		}
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "export default {\n  addons: [\n    '@storybook/addon-essentials',\n  ],\n};\n", string(doc.Serialize()))
}

func TestRemoveFromArrayField_InlineLastEntry(t *testing.T) {
	doc := parse(t, "main.js", "export default { addons: ['a', 'b'] };\n")
	n, err := doc.RemoveFromArrayField([]string{"addons"}, func(v any) bool { return v == "b" })
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "export default { addons: ['a'] };\n", string(doc.Serialize()))
}

func TestParse_CommonJSIsUnsupported(t *testing.T) {
	_, err := configdoc.Parse("main.js", []byte("module.exports = { stories: [] };\n"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedConfigShape)
}

func TestParse_SyntaxErrorIsMalformed(t *testing.T) {
	_, err := configdoc.Parse("main.js", []byte("export default { stories: [ };\n"))
	assert.ErrorIs(t, err, domain.ErrMalformedConfig)
}

func TestParse_SyntaxErrorRepeated(t *testing.T) {
	for i := 0; i < 200; i++ {
		_, err := configdoc.Parse("main.ts", []byte("export default { stories: [ };\n"))
		require.ErrorIs(t, err, domain.ErrMalformedConfig)
		assert.Contains(t, err.Error(), "line 1")
		runtime.GC()
	}
}

func TestSetField_InvalidResultIsRolledBack(t *testing.T) {
	src := "export default {\n  stories: [],\n};\n"
	doc := parse(t, "main.js", src)
	for i := 0; i < 50; i++ {
		err := doc.SetField([]string{"framework"}, domain.ConfigExpression{Source: "{ name: "})
		require.ErrorIs(t, err, domain.ErrMalformedConfig)
		runtime.GC()
	}
	assert.Equal(t, src, string(doc.Serialize()))

	require.NoError(t, doc.SetField([]string{"framework"}, "@storybook/react-vite"))
	v, ok := doc.GetField([]string{"framework"})
	require.True(t, ok)
	assert.Equal(t, "@storybook/react-vite", v)
}

func TestAppendToArrayField_AfterTrailingComment(t *testing.T) {
	doc := parse(t, "preview.js", "export default {\n  tags: [\n    'a', // first\n  ],\n};\n")
	require.NoError(t, doc.AppendToArrayField([]string{"tags"}, "autodocs"))
	assert.Equal(t, "export default {\n  tags: [\n    'a', // first\n    'autodocs',\n  ],\n};\n", string(doc.Serialize()))

	doc = parse(t, "preview.js", "export default {\n  tags: [\n    'a' /* first */\n  ],\n};\n")
	require.NoError(t, doc.AppendToArrayField([]string{"tags"}, "autodocs"))
	assert.Equal(t, "export default {\n  tags: [\n    'a', /* first */\n    'autodocs'\n  ],\n};\n", string(doc.Serialize()))
}

func TestSetField_ObjectWithTrailingComment(t *testing.T) {
	doc := parse(t, "main.js", "export default {\n  stories: [], // where stories live\n};\n")
	require.NoError(t, doc.SetField([]string{"framework"}, "@storybook/react-vite"))
	assert.Equal(t, "export default {\n  stories: [], // where stories live\n  framework: '@storybook/react-vite',\n};\n", string(doc.Serialize()))
}

func TestRemoveFromArrayField_TakesTrailingComment(t *testing.T) {
	src := "export default {\n  addons: [\n    '@storybook/addon-essentials', // keep\n    '@storybook/addon-interactions', // drop me\n    '@storybook/addon-links',\n  ],\n};\n"
	doc := parse(t, "main.js", src)
	n, err := doc.RemoveFromArrayField([]string{"addons"}, func(v any) bool { return v == "@storybook/addon-interactions" })
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "export default {\n  addons: [\n    '@storybook/addon-essentials', // keep\n    '@storybook/addon-links',\n  ],\n};\n", string(doc.Serialize()))

	doc = parse(t, "main.js", "export default {\n  addons: [\n    'a', // keep\n    'b' // drop me\n  ],\n};\n")
	_, err = doc.RemoveFromArrayField([]string{"addons"}, func(v any) bool { return v == "b" })
	require.NoError(t, err)
	assert.Equal(t, "export default {\n  addons: [\n    'a' // keep\n  ],\n};\n", string(doc.Serialize()))
}

func TestRemoveField_TakesTrailingComment(t *testing.T) {
	doc := parse(t, "main.js", "export default {\n  // stories\n  stories: [],\n  docs: { autodocs: true }, // legacy\n};\n")
	require.NoError(t, doc.RemoveField([]string{"docs"}))
	assert.Equal(t, "export default {\n  // stories\n  stories: [],\n};\n", string(doc.Serialize()))
}

func TestCRLF_LineEndingsArePreserved(t *testing.T) {
	src := "export default {\r\n  tags: [\r\n    'a',\r\n    'b',\r\n  ],\r\n};\r\n"
	doc := parse(t, "preview.js", src)
	assert.Equal(t, src, string(doc.Serialize()))

	require.NoError(t, doc.AppendToArrayField([]string{"tags"}, "autodocs"))
	assert.Equal(t, "export default {\r\n  tags: [\r\n    'a',\r\n    'b',\r\n    'autodocs',\r\n  ],\r\n};\r\n", string(doc.Serialize()))

	_, err := doc.RemoveFromArrayField([]string{"tags"}, func(v any) bool { return v == "a" })
	require.NoError(t, err)
	assert.Equal(t, "export default {\r\n  tags: [\r\n    'b',\r\n    'autodocs',\r\n  ],\r\n};\r\n", string(doc.Serialize()))

	named := parse(t, "preview.js", "export const parameters = {};\r\n")
	require.NoError(t, named.AppendToArrayField([]string{"tags"}, "autodocs"))
	assert.Equal(t, "export const parameters = {};\r\n\r\nexport const tags = ['autodocs'];\r\n", string(named.Serialize()))
}

func TestInsert_EmptyMultilineContainer(t *testing.T) {
	doc := parse(t, "main.js", "export default {\n  docs: {\n  },\n};\n")
	require.NoError(t, doc.SetField([]string{"docs", "defaultName"}, "Docs"))
	assert.Equal(t, "export default {\n  docs: {\n    defaultName: 'Docs',\n  },\n};\n", string(doc.Serialize()))

	doc = parse(t, "preview.js", "export default {\n  tags: [\n  ],\n};\n")
	require.NoError(t, doc.AppendToArrayField([]string{"tags"}, "autodocs"))
	assert.Equal(t, "export default {\n  tags: [\n    'autodocs',\n  ],\n};\n", string(doc.Serialize()))

	doc = parse(t, "preview.js", "export default {\n};\n")
	require.NoError(t, doc.SetField([]string{"tags"}, []string{"autodocs"}))
	assert.Equal(t, "export default {\n  tags: ['autodocs'],\n};\n", string(doc.Serialize()))
}

func TestRemoveField_DropsUnusedAlias(t *testing.T) {
	src := "const docsConfig = {\n  autodocs: true,\n};\n\nexport default {\n  stories: [],\n  docs: docsConfig,\n};\n"
	doc := parse(t, "main.js", src)
	require.NoError(t, doc.RemoveField([]string{"docs", "autodocs"}))
	assert.Equal(t, "export default {\n  stories: [],\n};\n", string(doc.Serialize()))

	doc = parse(t, "main.js", "import x from 'x';\nconst docs = { autodocs: true };\nexport default { stories: [], docs };\n")
	require.NoError(t, doc.RemoveField([]string{"docs", "autodocs"}))
	assert.Equal(t, "import x from 'x';\nexport default { stories: [] };\n", string(doc.Serialize()))
}

func TestRemoveField_KeepsAliasStillInUse(t *testing.T) {
	src := "const shared = { autodocs: true };\nexport const other = shared;\nexport default { docs: shared, stories: [] };\n"
	doc := parse(t, "main.js", src)
	require.NoError(t, doc.RemoveField([]string{"docs", "autodocs"}))
	assert.Equal(t, "const shared = { };\nexport const other = shared;\nexport default { stories: [] };\n", string(doc.Serialize()))
}

func TestCodec_ImplementsPort(t *testing.T) {
	var codec domain.ConfigCodec = configdoc.New()
	doc, err := codec.Parse("main.ts", []byte(mainTS))
	require.NoError(t, err)
	assert.Equal(t, "main.ts", doc.Filename())
}
