package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const (
	datePattern  = `^\d{4}-\d{2}-\d{2}$`
	clockPattern = `^([01]?\d|2[0-3]):[0-5]\d$`
	uuidPattern  = `^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`
)

func describe(s *openapi3.Schema, description string) *openapi3.Schema {
	s.Description = description
	return s
}

func dateSchema(description string) *openapi3.Schema {
	return describe(openapi3.NewStringSchema().WithPattern(datePattern), description)
}

func clockSchema(description string) *openapi3.Schema {
	return describe(openapi3.NewStringSchema().WithPattern(clockPattern), description)
}

func statusSchema(description string) *openapi3.Schema {
	return describe(openapi3.NewStringSchema().WithEnum(
		"scheduled", "confirmed", "in_progress", "finished", "canceled",
	), description)
}

func listBookingsSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("data_inicio", dateSchema("Data inicial (YYYY-MM-DD). Sem datas e sem cliente, lista o dia de hoje.")).
		WithProperty("data_fim", dateSchema("Data final inclusiva (YYYY-MM-DD).")).
		WithProperty("status", statusSchema("Filtra por status. Por padrao, agendamentos cancelados ficam de fora.")).
		WithProperty("quadra", describe(openapi3.NewStringSchema(), "Nome, numero ou id da quadra.")).
		WithProperty("cliente", describe(openapi3.NewStringSchema(), "Parte do nome do cliente ou responsavel.")).
		WithProperty("pagina", describe(openapi3.NewIntegerSchema().WithMin(1), "Pagina, a partir de 1.")).
		WithProperty("limite", describe(openapi3.NewIntegerSchema().WithMin(1).WithMax(100), "Itens por pagina."))
	return s
}

func listClientsSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("busca", describe(openapi3.NewStringSchema().WithMinLength(2), "Nome ou parte do nome do cliente.")).
		WithProperty("limite", describe(openapi3.NewIntegerSchema().WithMin(1).WithMax(50), "Maximo de clientes."))
	s.Required = []string{"busca"}
	return s
}

func listCourtsSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("modalidade", describe(openapi3.NewStringSchema(), "Mostra apenas quadras que oferecem esta modalidade."))
}

func createBookingSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("responsavel", describe(openapi3.NewStringSchema().WithMinLength(1), "Nome do responsavel pelo agendamento.")).
		WithProperty("cliente_id", describe(openapi3.NewStringSchema().WithPattern(uuidPattern), "Id do cliente ja identificado, quando houver.")).
		WithProperty("data", dateSchema("Data local do jogo (YYYY-MM-DD).")).
		WithProperty("hora_inicio", clockSchema("Inicio, HH:mm local.")).
		WithProperty("hora_fim", clockSchema("Fim, HH:mm local. 00:00 significa meia-noite do dia seguinte.")).
		WithProperty("quadra", describe(openapi3.NewStringSchema(), "Nome, numero (1, 2, ...) ou id da quadra.")).
		WithProperty("modalidade", describe(openapi3.NewStringSchema(), "Modalidade; preenchida automaticamente se a quadra tiver apenas uma."))
	s.Required = []string{"responsavel", "data", "hora_inicio", "hora_fim"}
	return s
}

func updateBookingSchema() *openapi3.Schema {
	fields := openapi3.NewObjectSchema().
		WithProperty("start", describe(openapi3.NewStringSchema(), "Novo inicio: HH:mm no dia do agendamento ou RFC3339.")).
		WithProperty("end", describe(openapi3.NewStringSchema(), "Novo fim: HH:mm (00:00 = meia-noite seguinte) ou RFC3339.")).
		WithProperty("status", statusSchema("Novo status. Use canceled para cancelar.")).
		WithProperty("modality", describe(openapi3.NewStringSchema(), "Nova modalidade, entre as da quadra."))
	fields.Description = "Somente start, end, status e modality podem ser alterados."

	s := openapi3.NewObjectSchema().
		WithProperty("agendamento_id", describe(openapi3.NewStringSchema().WithPattern(uuidPattern), "Id do agendamento.")).
		WithProperty("campos", fields)
	s.Required = []string{"agendamento_id", "campos"}
	return s
}

// validate checks args against schema and condenses the failure into one line.
func validate(schema *openapi3.Schema, args map[string]any) error {
	err := schema.VisitJSON(args)
	if err == nil {
		return nil
	}
	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		path := strings.Join(schemaErr.JSONPointer(), ".")
		if path == "" {
			return errors.New(schemaErr.Reason)
		}
		return fmt.Errorf("%s: %s", path, schemaErr.Reason)
	}
	return err
}

// toJSONSchema renders a schema as the plain map the model API expects.
func toJSONSchema(schema *openapi3.Schema) map[string]any {
	if schema == nil {
		return nil
	}
	result := map[string]any{}
	if schema.Type != nil {
		if types := schema.Type.Slice(); len(types) == 1 {
			result["type"] = types[0]
		} else if len(types) > 1 {
			result["type"] = types
		}
	}
	if schema.Description != "" {
		result["description"] = schema.Description
	}
	if schema.Pattern != "" {
		result["pattern"] = schema.Pattern
	}
	if len(schema.Enum) > 0 {
		result["enum"] = schema.Enum
	}
	if schema.Min != nil {
		result["minimum"] = *schema.Min
	}
	if schema.Max != nil {
		result["maximum"] = *schema.Max
	}
	if schema.MinLength > 0 {
		result["minLength"] = schema.MinLength
	}
	if len(schema.Required) > 0 {
		result["required"] = schema.Required
	}
	if schema.Properties != nil {
		props := make(map[string]any, len(schema.Properties))
		for key, ref := range schema.Properties {
			if ref != nil {
				props[key] = toJSONSchema(ref.Value)
			}
		}
		result["properties"] = props
	}
	return result
}
