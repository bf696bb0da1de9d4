// Package lineage builds the column lineage index from raw output-table
// records.
//
// Each record names an output column of a sheet, the record id ("Sor_id")
// it belongs to and a newline-delimited list of "table.column" tokens. Tokens
// whose table is present in the catalog become references; everything else
// is dropped without being reported.
//
// # Basic Usage
//
//	catalog := core.NewCatalog([]core.CatalogRecord{
//	    {TableName: "customers", InputColumns: []string{"id", "name"}},
//	})
//
//	index := lineage.Build(catalog, []core.LineageRecord{{
//	    Sheet:        "orders",
//	    RecordID:     "1",
//	    OutputColumn: "cust_name",
//	    InputRefs:    "customers.name",
//	    Rule:         "direct copy",
//	}})
//
//	slice := index.Slice(core.Selection{Sheet: "orders", RecordID: "1"})
//	for _, col := range slice.Columns {
//	    fmt.Printf("%s <- %v\n", col.Name, col.References)
//	}
package lineage
