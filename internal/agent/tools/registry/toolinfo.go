package registry

import (
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/cms-copilot/server/internal/agent/model"
)

// ToolInfos converts registry tool specs into Eino tool declarations so the
// extractor model can pick one via tool calling. The JSON Schema from the
// registry is flattened to top-level parameters; nested objects are passed
// through as generic objects.
func ToolInfos(specs []model.ToolSpec) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(specs))
	for _, spec := range specs {
		infos = append(infos, &schema.ToolInfo{
			Name:        spec.Name,
			Desc:        spec.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(paramsFromSchema(spec.InputSchema)),
		})
	}
	return infos
}

func paramsFromSchema(inputSchema map[string]any) map[string]*schema.ParameterInfo {
	params := map[string]*schema.ParameterInfo{}
	props, _ := inputSchema["properties"].(map[string]any)
	required := map[string]bool{}
	if reqs, ok := inputSchema["required"].([]any); ok {
		for _, r := range reqs {
			required[fmt.Sprint(r)] = true
		}
	}
	for name, raw := range props {
		prop, _ := raw.(map[string]any)
		desc, _ := prop["description"].(string)
		params[name] = &schema.ParameterInfo{
			Type:     dataTypeOf(prop),
			Desc:     desc,
			Required: required[name],
		}
	}
	return params
}

func dataTypeOf(prop map[string]any) schema.DataType {
	switch fmt.Sprint(prop["type"]) {
	case "string":
		return schema.String
	case "number":
		return schema.Number
	case "integer":
		return schema.Integer
	case "boolean":
		return schema.Boolean
	case "array":
		return schema.Array
	default:
		return schema.Object
	}
}
