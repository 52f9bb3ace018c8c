/*
Package dimension provides the string-interning layer the rest of the
storage engine builds on: a Dimension turns arbitrary tag values into
stable 32-bit indices, and a DimensionSet fixes the tuple shape of every
Key drawn from it.

# Why intern at all

Keys are compared and sorted constantly — on every write-buffer merge and
every query. Comparing 32-bit integers is an order of magnitude cheaper
than comparing strings, and a Key becomes a small fixed-size value instead
of a slice of pointers into string data. The cost is the indirection: to
print a Key you look up each index back through its owning Dimension.

# Ordering

A DimensionSet orders its dimensions by descending cardinality at
construction time. Lexicographic Key comparison checks the first tuple
position first, so placing the highest-cardinality (most selective)
dimension there prunes the most comparisons during a sorted merge.

# Reserved names

machine, machinefunction, datacenter, environment, start, end, percentile,
aggregate, and dimension are reserved at the wire boundary and cannot be
used as dimension names.
*/
package dimension
