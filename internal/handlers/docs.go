package handlers

import (
	"net/http"
)

func dateParam(name, description string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      map[string]string{"type": "string", "format": "date"},
	}
}

var rangeParams = []map[string]interface{}{
	dateParam("start_date", "First day of the range (YYYY-MM-DD, default: first day of the dataset)"),
	dateParam("end_date", "Last day of the range (YYYY-MM-DD, default: last day of the dataset)"),
}

var yearParam = map[string]interface{}{
	"name":        "year",
	"in":          "query",
	"description": "Calendar year of the partition",
	"required":    true,
	"schema":      map[string]interface{}{"type": "integer", "enum": []int{2011, 2012}},
}

func jsonResponse(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": schema},
		},
	}
}

func ref(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/components/schemas/" + name}
}

func arrayOf(name string) map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": ref(name)}
}

func intArray() map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": map[string]string{"type": "integer"}}
}

func stringArray() map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}}
}

func object(props map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": props}
}

var errorResponses = map[string]interface{}{
	"400": jsonResponse("Invalid date, reversed range or too few days for the delta", ref("Error")),
	"422": jsonResponse("Dataset contains an unknown coded value", ref("Error")),
	"500": jsonResponse("Internal error", ref("Error")),
}

func getOperation(summary, description string, params []map[string]interface{}, ok map[string]interface{}) map[string]interface{} {
	responses := map[string]interface{}{"200": ok}
	for code, resp := range errorResponses {
		responses[code] = resp
	}
	op := map[string]interface{}{
		"summary":     summary,
		"description": description,
		"responses":   responses,
	}
	if len(params) > 0 {
		op["parameters"] = params
	}
	return map[string]interface{}{"get": op}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Bike Sharing Dashboard API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	date := map[string]string{"type": "string", "format": "date-time"}
	integer := map[string]string{"type": "integer"}
	number := map[string]string{"type": "number"}
	str := map[string]string{"type": "string"}
	dateRange := object(map[string]interface{}{"start_date": date, "end_date": date})

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Bike Sharing Dashboard API",
			"description": "Daily bike rental aggregates for a selectable date range: totals, casual vs registered, weather, seasons and months",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Bike Sharing Dashboard Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/dashboard": getOperation("Render the dashboard",
				"Every derived table for the range; the range is clamped to the dataset bounds",
				rangeParams, jsonResponse("Dashboard", ref("Dashboard"))),
			"/api/dashboard/export.xlsx": getOperation("Export the dashboard",
				"Excel workbook with one sheet per table",
				rangeParams, map[string]interface{}{
					"description": "Workbook",
					"content": map[string]interface{}{
						"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": map[string]interface{}{
							"schema": map[string]string{"type": "string", "format": "binary"},
						},
					},
				}),
			"/api/rentals/daily": getOperation("Daily order totals",
				"One row per calendar day; days without records are zero",
				rangeParams, jsonResponse("Daily totals", arrayOf("DailyOrders"))),
			"/api/rentals/comparison": getOperation("Casual vs registered per day",
				"Casual plus registered always equals the total",
				rangeParams, jsonResponse("Daily comparison", arrayOf("DailyComparison"))),
			"/api/rentals/weather": getOperation("Rentals by weather situation",
				"Situations present in the range, ascending by code unless order=desc",
				append(append([]map[string]interface{}{}, rangeParams...), map[string]interface{}{
					"name":        "order",
					"in":          "query",
					"description": "code (default) or desc by total",
					"required":    false,
					"schema":      map[string]interface{}{"type": "string", "enum": []string{"code", "desc"}},
				}), jsonResponse("Weather totals", arrayOf("WeatherTotal"))),
			"/api/rentals/seasons": getOperation("Seasonal breakdown",
				"Casual and registered sums per season over the whole year",
				[]map[string]interface{}{yearParam}, jsonResponse("Seasonal breakdown", ref("SeasonalBreakdown"))),
			"/api/rentals/months": getOperation("Monthly breakdown",
				"Casual, registered and total sums per month over the whole year",
				[]map[string]interface{}{yearParam}, jsonResponse("Monthly breakdown", ref("MonthlyBreakdown"))),
			"/api/dataset/bounds": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Dataset bounds",
					"description": "First and last day of the loaded dataset",
					"responses": map[string]interface{}{
						"200": jsonResponse("Bounds", object(map[string]interface{}{
							"start_date": str,
							"end_date":   str,
							"records":    integer,
							"source":     str,
						})),
					},
				},
			},
			"/ws/dashboard": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Live dashboard",
					"description": "Websocket. Send {\"start_date\",\"end_date\",\"request_id\"}; " +
						"each message is answered with {\"type\":\"dashboard\",\"data\"} or {\"type\":\"error\",\"error\"}",
					"responses": map[string]interface{}{
						"101": map[string]string{"description": "Switching protocols"},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API is running and the database, if any, is reachable",
					"responses": map[string]interface{}{
						"200": jsonResponse("API is healthy", object(map[string]interface{}{
							"status":   str,
							"records":  integer,
							"database": str,
						})),
						"503": jsonResponse("Database unavailable", object(map[string]interface{}{
							"status":   str,
							"database": str,
						})),
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Error": object(map[string]interface{}{
					"error":   str,
					"message": str,
					"code":    integer,
				}),
				"DailyOrders": object(map[string]interface{}{
					"date":                  date,
					"distinct_record_count": integer,
					"total_count":           integer,
				}),
				"DailyComparison": object(map[string]interface{}{
					"date":                  date,
					"distinct_record_count": integer,
					"casual_count":          integer,
					"registered_count":      integer,
					"total_count":           integer,
				}),
				"WeatherTotal": object(map[string]interface{}{
					"weather_situation": integer,
					"label":             str,
					"total_count":       integer,
				}),
				"SeasonalBreakdown": object(map[string]interface{}{
					"year_flag":            integer,
					"year":                 integer,
					"seasons":              stringArray(),
					"casual_by_season":     intArray(),
					"registered_by_season": intArray(),
				}),
				"MonthlyBreakdown": object(map[string]interface{}{
					"year_flag":           integer,
					"year":                integer,
					"months":              stringArray(),
					"casual_by_month":     intArray(),
					"registered_by_month": intArray(),
					"total_by_month":      intArray(),
				}),
				"Dashboard": object(map[string]interface{}{
					"requested_range": dateRange,
					"effective_range": dateRange,
					"dataset_bounds":  dateRange,
					"summary": object(map[string]interface{}{
						"total_rentals":            integer,
						"casual_total":             integer,
						"registered_total":         integer,
						"record_count":             integer,
						"day_count":                integer,
						"day_over_day_delta":       map[string]interface{}{"type": "integer", "nullable": true},
						"day_over_day_delta_error": str,
					}),
					"customer_share": object(map[string]interface{}{
						"casual_percent":     number,
						"registered_percent": number,
					}),
					"daily_orders":     arrayOf("DailyOrders"),
					"running_total":    intArray(),
					"daily_comparison": arrayOf("DailyComparison"),
					"weather":          arrayOf("WeatherTotal"),
					"weather_ranked":   arrayOf("WeatherTotal"),
					"years": map[string]interface{}{
						"type": "array",
						"items": object(map[string]interface{}{
							"year":    integer,
							"seasons": ref("SeasonalBreakdown"),
							"months":  ref("MonthlyBreakdown"),
						}),
					},
				}),
			},
		},
	}

	sendJSON(w, spec, http.StatusOK)
}
